package router

import (
	"fmt"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"growset/config"
	handler "growset/internal/poll"
	"growset/internal/poll/model"
	"growset/middleware"
)

// Setup builds the application's route table and wraps it in the common
// middleware.
func Setup(cfg config.Config, h *handler.PollHandler) http.Handler {
	// Polls of every supported id size stay reachable after ID_BYTES changes.
	sizes := make([]string, 0, len(model.IDByteSizes))
	for _, n := range model.IDByteSizes {
		sizes = append(sizes, fmt.Sprintf("[a-f0-9]{%d}", n*2))
	}
	id := "(" + strings.Join(sizes, "|") + ")"

	rt := &Router{
		Guard: middleware.BasicAuth(middleware.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
			Realm:    cfg.Realm,
		}),
		NotFound: http.HandlerFunc(handler.NotFound),
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	rt.HandleProtected(http.MethodGet, Exact("/"), h.GetIndex)
	rt.HandleProtected(http.MethodPost, Exact("/"), h.CreatePoll)
	rt.HandleProtected(http.MethodPost, Exact("/remove"), h.Remove)

	rt.Handle(http.MethodGet, Exact("/styles.css"), h.Asset("styles.css", "text/css; charset=utf-8"))
	rt.Handle(http.MethodGet, Exact("/client.js"), h.Asset("client.js", "text/javascript; charset=utf-8"))

	rt.Handle(http.MethodGet, Pattern("/"+id, "id"), h.GetPoll)
	rt.Handle(http.MethodPost, Pattern("/"+id, "id"), limiter.Middleware(http.HandlerFunc(h.AddEntry)).ServeHTTP)
	rt.Handle(http.MethodGet, Pattern("/"+id+"/live", "id"), h.Live)

	app := middleware.WithLogging(noCacheExceptAssets(rt))
	if cfg.TrustProxy {
		app = chimw.RealIP(app)
	}
	return middleware.Recover(app)
}

func noCacheExceptAssets(next http.Handler) http.Handler {
	noCache := middleware.NoCache(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/styles.css", "/client.js":
			next.ServeHTTP(w, r)
		default:
			noCache.ServeHTTP(w, r)
		}
	})
}
