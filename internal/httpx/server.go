package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/auth"
	"github.com/ariefcatur/go-waste-portal.git/internal/cart"
	"github.com/ariefcatur/go-waste-portal.git/internal/catalog"
	"github.com/ariefcatur/go-waste-portal.git/internal/history"
	"github.com/ariefcatur/go-waste-portal.git/internal/notify"
	"github.com/ariefcatur/go-waste-portal.git/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps is everything the router hands out to handlers.
type Deps struct {
	Log          *zap.Logger
	Sessions     session.Store
	SessionTTL   time.Duration
	CookieSecure bool
	Guard        *auth.Guard
	Auth         *auth.Authenticator
	Roles        auth.Roles
	Notices      *notify.Queue
	Catalog      *catalog.Browser
	Carts        *cart.Service
	History      *history.Service
	Users        UserAdmin
	Timeout      time.Duration
}

func NewRouter(d Deps) *chi.Mux {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Sessions(d.Sessions, d.SessionTTL, d.CookieSecure))

		(&authHandler{
			auth:     d.Auth,
			notices:  d.Notices,
			loginURL: d.Guard.LoginURL,
			forget:   d.History.Forget,
			log:      d.Log,
		}).register(r)

		r.Route("/portal", func(r chi.Router) {
			r.Use(d.Guard.Require(d.Roles.WasteImage))
			(&portalHandler{catalog: d.Catalog, carts: d.Carts, log: d.Log}).register(r)
		})
		r.Route("/view", func(r chi.Router) {
			r.Use(d.Guard.Require(d.Roles.View))
			(&historyHandler{history: d.History, log: d.Log}).register(r)
		})
		r.Route("/register", func(r chi.Router) {
			r.Use(d.Guard.Require(d.Roles.Admin))
			(&registerHandler{users: d.Users, log: d.Log}).register(r)
		})
	})
	return r
}

// requestLogger writes one structured line per request once it completes.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", r.RemoteAddr),
				zap.Int("body_size", ww.BytesWritten()),
			}
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				fields = append(fields, zap.String("request_id", rid))
			}
			switch {
			case status >= 500:
				log.Error("http_request", fields...)
			case status >= 400:
				log.Warn("http_request", fields...)
			default:
				log.Info("http_request", fields...)
			}
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code, msg := apperr.Status(err)
	if code >= 500 {
		log.Error("request failed", zap.Int("status", code), zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid json")
	}
	return nil
}

// sessionOf never returns nil behind auth.Sessions.
func sessionOf(r *http.Request) *session.Session {
	return auth.SessionFrom(r.Context())
}
