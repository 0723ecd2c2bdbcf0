// Package guard decides whether a navigation may proceed given the target
// route's metadata and the current session.
package guard

import (
	"net/url"

	"github.com/charadev96/galleryclient/internal/client/domain"
)

const (
	LoginPath     = "/login"
	RedirectParam = "redirect"
)

// Func is a pluggable guard. Implementations must not perform I/O; they
// judge the session exactly as handed to them.
type Func func(meta domain.RouteMeta, sess domain.Session, target string) domain.Decision

// Check allows routes without RequiresAuth unconditionally and routes with
// it only for an authenticated session. Otherwise it redirects to the login
// route carrying target so the login flow can return there.
func Check(meta domain.RouteMeta, sess domain.Session, target string) domain.Decision {
	if !meta.RequiresAuth || sess.Authenticated() {
		return domain.Decision{}
	}
	return domain.Decision{Redirect: LoginRedirect(target)}
}

func LoginRedirect(target string) string {
	q := url.Values{}
	q.Set(RedirectParam, target)
	return LoginPath + "?" + q.Encode()
}
