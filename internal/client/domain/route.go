package domain

import "net/url"

type RouteMeta struct {
	RequiresAuth bool
}

// Route is an entry of the navigation table. Pattern uses chi syntax,
// e.g. "/album/{id}".
type Route struct {
	Name    string
	Pattern string
	Meta    RouteMeta
}

// Location is a resolved navigation target.
type Location struct {
	Route  Route
	Path   string
	Params map[string]string
	Query  url.Values

	// RedirectedFrom is the path originally requested when the guard
	// rerouted the transition.
	RedirectedFrom string
}

func (l Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Decision is the outcome of a guard check. An empty Redirect allows the
// transition.
type Decision struct {
	Redirect string
}

func (d Decision) Allowed() bool {
	return d.Redirect == ""
}
