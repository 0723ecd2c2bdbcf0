package navigation

import (
	"errors"
	"testing"

	"github.com/charadev96/galleryclient/internal/client/domain"
)

type staticSession domain.Session

func (s *staticSession) Snapshot() domain.Session {
	return domain.Session(*s)
}

func authenticated() *staticSession {
	return &staticSession{Token: "abc", User: &domain.User{ID: 1, Username: "alice"}}
}

func TestResolve(t *testing.T) {
	r := NewRouter(&staticSession{}, DefaultRoutes())

	tests := []struct {
		path  string
		route string
		id    string
	}{
		{"/", "home", ""},
		{"/album/12", "album", "12"},
		{"/album/12/", "album", "12"},
		{"/album/12/edit", "albumEdit", "12"},
		{"/new-album", "albumNew", ""},
		{"/upload?x=1", "upload", ""},
		{"/login", "login", ""},
	}
	for _, tt := range tests {
		loc, err := r.Resolve(tt.path)
		if err != nil {
			t.Fatalf("Resolve(%q) err: %v", tt.path, err)
		}
		if loc.Route.Name != tt.route {
			t.Fatalf("Resolve(%q): expected route %s, got %s", tt.path, tt.route, loc.Route.Name)
		}
		if loc.Params["id"] != tt.id {
			t.Fatalf("Resolve(%q): expected id %q, got %q", tt.path, tt.id, loc.Params["id"])
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	r := NewRouter(&staticSession{}, DefaultRoutes())
	if _, err := r.Resolve("/photos/1"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestNavigateGuardedAnonymous(t *testing.T) {
	r := NewRouter(&staticSession{}, DefaultRoutes())

	loc, err := r.Navigate("/upload")
	if err != nil {
		t.Fatalf("Navigate err: %v", err)
	}
	if loc.Route.Name != "login" {
		t.Fatalf("expected redirect to login, got %s", loc.Route.Name)
	}
	if loc.FullPath() != "/login?redirect=%2Fupload" {
		t.Fatalf("unexpected login location %s", loc.FullPath())
	}
	if loc.RedirectedFrom != "/upload" {
		t.Fatalf("expected RedirectedFrom /upload, got %q", loc.RedirectedFrom)
	}
	if r.Current().Route.Name != "login" {
		t.Fatalf("current location not updated")
	}
	if got := r.LoginReturn(); got != "/upload" {
		t.Fatalf("expected login return /upload, got %s", got)
	}
}

func TestNavigateGuardedAuthenticated(t *testing.T) {
	r := NewRouter(authenticated(), DefaultRoutes())

	loc, err := r.Navigate("/album/7/edit")
	if err != nil {
		t.Fatalf("Navigate err: %v", err)
	}
	if loc.Route.Name != "albumEdit" || loc.RedirectedFrom != "" {
		t.Fatalf("expected unmodified transition, got %+v", loc)
	}
	if r.LoginReturn() != "/" {
		t.Fatalf("expected login return / outside the login route")
	}
}

func TestNavigateFollowsSessionChanges(t *testing.T) {
	sess := &staticSession{}
	r := NewRouter(sess, DefaultRoutes())

	if loc, _ := r.Navigate("/new-album"); loc.Route.Name != "login" {
		t.Fatalf("expected login, got %s", loc.Route.Name)
	}
	*sess = *authenticated()
	if loc, _ := r.Navigate(r.LoginReturn()); loc.Route.Name != "albumNew" {
		t.Fatalf("expected albumNew after sign in, got %s", loc.Route.Name)
	}
}

func TestNavigateRedirectLoop(t *testing.T) {
	r := NewRouter(&staticSession{}, DefaultRoutes())
	r.Guard = func(meta domain.RouteMeta, sess domain.Session, target string) domain.Decision {
		return domain.Decision{Redirect: "/upload"}
	}
	if _, err := r.Navigate("/"); !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("expected ErrRedirectLoop, got %v", err)
	}
}

func TestOnChange(t *testing.T) {
	r := NewRouter(authenticated(), DefaultRoutes())
	var seen []string
	remove := r.OnChange(func(loc domain.Location) {
		seen = append(seen, loc.Route.Name)
	})
	r.Navigate("/")
	r.Navigate("/upload")
	remove()
	r.Navigate("/login")

	if len(seen) != 2 || seen[0] != "home" || seen[1] != "upload" {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestLoginReturnRejectsExternal(t *testing.T) {
	r := NewRouter(&staticSession{}, DefaultRoutes())
	r.Navigate("/login?redirect=//evil.example.com")
	if got := r.LoginReturn(); got != "/" {
		t.Fatalf("expected /, got %s", got)
	}
}
