package router

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// Matcher reports whether a path belongs to a route and sets any path
// values on the request.
type Matcher interface {
	Match(path string) (values map[string]string, ok bool)
}

type exact string

func (e exact) Match(path string) (map[string]string, bool) {
	return nil, path == string(e)
}

// Exact matches one literal path.
func Exact(path string) Matcher {
	return exact(path)
}

type pattern struct {
	re    *regexp.Regexp
	names []string
}

func (p pattern) Match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	values := make(map[string]string, len(p.names))
	for i, name := range p.names {
		if name != "" && i+1 < len(m) {
			values[name] = m[i+1]
		}
	}
	return values, true
}

// Pattern matches a whole path against expr. Capture groups are exposed as
// path values under names, in order.
func Pattern(expr string, names ...string) Matcher {
	return pattern{re: regexp.MustCompile("^" + expr + "$"), names: names}
}

// Route is one (method, path, handler) entry of the table.
type Route struct {
	Method  string
	Path    Matcher
	Handler http.Handler
	// Protected routes go through the router's Guard. The guard runs before
	// method dispatch for every request whose path matches a protected route.
	Protected bool
}

// Router dispatches over an ordered route table. Unknown paths get
// NotFound; known paths with an unsupported method get 405.
type Router struct {
	Routes   []Route
	Guard    func(http.Handler) http.Handler
	NotFound http.Handler
}

func (rt *Router) Handle(method string, path Matcher, h http.HandlerFunc) {
	rt.Routes = append(rt.Routes, Route{Method: method, Path: path, Handler: h})
}

func (rt *Router) HandleProtected(method string, path Matcher, h http.HandlerFunc) {
	rt.Routes = append(rt.Routes, Route{Method: method, Path: path, Handler: h, Protected: true})
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		matched   bool
		protected bool
		target    *Route
		values    map[string]string
		allowed   []string
	)
	path := r.URL.Path
	for i := range rt.Routes {
		route := &rt.Routes[i]
		v, ok := route.Path.Match(path)
		if !ok {
			continue
		}
		matched = true
		protected = protected || route.Protected
		allowed = append(allowed, route.Method)
		if target == nil && route.Method == r.Method {
			target = route
			values = v
		}
	}

	if !matched {
		rt.notFound(w, r)
		return
	}

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target == nil {
			sort.Strings(allowed)
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		for name, value := range values {
			r.SetPathValue(name, value)
		}
		target.Handler.ServeHTTP(w, r)
	})
	if protected && rt.Guard != nil {
		h = rt.Guard(h)
	}
	h.ServeHTTP(w, r)
}

func (rt *Router) notFound(w http.ResponseWriter, r *http.Request) {
	if rt.NotFound != nil {
		rt.NotFound.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}
