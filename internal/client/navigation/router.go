package navigation

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/charadev96/galleryclient/internal/client/domain"
	"github.com/charadev96/galleryclient/internal/client/guard"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrRedirectLoop  = errors.New("too many guard redirects")
)

const maxRedirects = 3

// SessionSource exposes the in-memory session the guard judges.
type SessionSource interface {
	Snapshot() domain.Session
}

// DefaultRoutes is the route table of the gallery front end.
func DefaultRoutes() []domain.Route {
	return []domain.Route{
		{Name: "home", Pattern: "/"},
		{Name: "album", Pattern: "/album/{id}"},
		{Name: "albumEdit", Pattern: "/album/{id}/edit", Meta: domain.RouteMeta{RequiresAuth: true}},
		{Name: "albumNew", Pattern: "/new-album", Meta: domain.RouteMeta{RequiresAuth: true}},
		{Name: "upload", Pattern: "/upload", Meta: domain.RouteMeta{RequiresAuth: true}},
		{Name: "login", Pattern: guard.LoginPath},
	}
}

// Router resolves paths against a route table and runs the guard on every
// transition.
type Router struct {
	Session SessionSource
	Guard   guard.Func
	Logger  *zerolog.Logger

	mux    *chi.Mux
	routes map[string]domain.Route

	mu        sync.Mutex
	current   domain.Location
	listeners []*listener
}

type listener struct {
	fn func(domain.Location)
}

func NewRouter(sess SessionSource, routes []domain.Route) *Router {
	r := &Router{
		Session: sess,
		Guard:   guard.Check,
		mux:     chi.NewRouter(),
		routes:  make(map[string]domain.Route, len(routes)),
	}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, route := range routes {
		r.mux.Get(route.Pattern, noop)
		r.routes[route.Pattern] = route
	}
	return r
}

func (r *Router) logger() *zerolog.Logger {
	if r.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return r.Logger
}

// Resolve matches target against the route table without guarding it.
func (r *Router) Resolve(target string) (domain.Location, error) {
	u, err := url.Parse(target)
	if err != nil {
		return domain.Location{}, fmt.Errorf("failed to parse path '%s': %w", target, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, path) {
		return domain.Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	route, ok := r.routes[rctx.RoutePattern()]
	if !ok {
		return domain.Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		params[key] = rctx.URLParams.Values[i]
	}
	return domain.Location{
		Route:  route,
		Path:   path,
		Params: params,
		Query:  u.Query(),
	}, nil
}

// Navigate resolves target, consults the guard with the current session and
// follows its redirect. The final location becomes Current.
func (r *Router) Navigate(target string) (domain.Location, error) {
	loc, err := r.Resolve(target)
	if err != nil {
		return domain.Location{}, err
	}

	check := r.Guard
	if check == nil {
		check = guard.Check
	}

	for i := 0; ; i++ {
		var sess domain.Session
		if r.Session != nil {
			sess = r.Session.Snapshot()
		}
		decision := check(loc.Route.Meta, sess, loc.FullPath())
		if decision.Allowed() {
			break
		}
		if i == maxRedirects {
			return domain.Location{}, fmt.Errorf("%w: %s", ErrRedirectLoop, target)
		}

		r.logger().Info().
			Str("route", loc.Route.Name).
			Str("redirect", decision.Redirect).
			Msg("navigation redirected")

		from := loc.FullPath()
		if loc.RedirectedFrom != "" {
			from = loc.RedirectedFrom
		}
		loc, err = r.Resolve(decision.Redirect)
		if err != nil {
			return domain.Location{}, err
		}
		loc.RedirectedFrom = from
	}

	r.mu.Lock()
	r.current = loc
	ls := append([]*listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range ls {
		l.fn(loc)
	}
	return loc, nil
}

func (r *Router) Current() domain.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// LoginReturn is where a completed login should navigate to: the redirect
// carried by the current login location, or home.
func (r *Router) LoginReturn() string {
	cur := r.Current()
	if cur.Route.Pattern != guard.LoginPath {
		return "/"
	}
	back := cur.Query.Get(guard.RedirectParam)
	if !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		return "/"
	}
	return back
}

// OnChange registers fn to be called after every completed navigation.
func (r *Router) OnChange(fn func(domain.Location)) (remove func()) {
	l := &listener{fn: fn}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, other := range r.listeners {
			if other == l {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}
