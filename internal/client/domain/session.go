package domain

import "strings"

// User is the profile returned by the backend for the current token.
type User struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
}

func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

type Credentials struct {
	Username string
	Password string
}

// Session is a point-in-time copy of the client's authentication state.
// User is never set while Token is empty.
type Session struct {
	Token string
	User  *User
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

func (s Session) State() State {
	switch {
	case s.Token == "":
		return StateUnauthenticated
	case s.User == nil:
		return StateAuthenticating
	default:
		return StateAuthenticated
	}
}

type State int

const (
	StateUnauthenticated State = iota
	// StateAuthenticating holds a token whose profile has not been fetched.
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}
