package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echo(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + ":" + r.PathValue("id")))
	}
}

func denyAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func testRouter() *Router {
	rt := &Router{Guard: denyAll}
	rt.HandleProtected(http.MethodGet, Exact("/admin"), echo("admin"))
	rt.Handle(http.MethodGet, Pattern("/([a-f0-9]{4})", "id"), echo("get"))
	rt.Handle(http.MethodPost, Pattern("/([a-f0-9]{4})", "id"), echo("post"))
	rt.Handle(http.MethodGet, Exact("/first"), echo("first"))
	rt.Handle(http.MethodGet, Exact("/first"), echo("second"))
	return rt
}

func TestRouterDispatch(t *testing.T) {
	rt := testRouter()

	cases := []struct {
		method string
		path   string
		status int
		body   string
		allow  string
	}{
		{http.MethodGet, "/beef", http.StatusOK, "get:beef", ""},
		{http.MethodPost, "/beef", http.StatusOK, "post:beef", ""},
		{http.MethodDelete, "/beef", http.StatusMethodNotAllowed, "", "GET, POST"},
		{http.MethodGet, "/BEEF", http.StatusNotFound, "", ""},
		{http.MethodGet, "/beefy", http.StatusNotFound, "", ""},
		{http.MethodGet, "/beef/", http.StatusNotFound, "", ""},
		{http.MethodGet, "/first", http.StatusOK, "first:", ""},
		{http.MethodGet, "/admin", http.StatusUnauthorized, "", ""},
		{http.MethodPut, "/admin", http.StatusUnauthorized, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			rt.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.status, rr.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rr.Body.String())
			}
			assert.Equal(t, tc.allow, rr.Header().Get("Allow"))
		})
	}
}

func TestRouterCustomNotFound(t *testing.T) {
	rt := testRouter()
	rt.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not found."))
	})

	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found.", rr.Body.String())
}

func TestPatternNamesCaptures(t *testing.T) {
	values, ok := Pattern("/([a-z]+)/([0-9]+)", "name", "n").Match("/abc/42")
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"name": "abc", "n": "42"}, values)

	_, ok = Pattern("/([a-z]+)", "name").Match("/abc/42")
	assert.False(t, ok)
}
