package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jinzhu/copier"

	"github.com/charadev96/galleryclient/internal/client/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginReply struct {
	AuthToken string `json:"auth_token"`
}

type user struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u *user) toDomain() domain.User {
	usr := domain.User{}
	copier.Copy(&usr, u)
	if usr.Username == "" {
		usr.Username = u.Name
	}
	return usr
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	req := loginRequest{Username: creds.Username, Password: creds.Password}
	var reply loginReply
	if err := c.do(ctx, "login", http.MethodPost, "auth/login", req, &reply); err != nil {
		return "", err
	}
	if reply.AuthToken == "" {
		return "", fmt.Errorf("login: response carries no auth_token")
	}
	return reply.AuthToken, nil
}

// CurrentUser fetches the profile of the token attached to the request.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	u := new(user)
	if err := c.do(ctx, "current user", http.MethodGet, "auth/users/me/", nil, u); err != nil {
		return domain.User{}, err
	}
	return u.toDomain(), nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "auth/logout", nil, nil)
}
