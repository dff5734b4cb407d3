package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"suctracker/backend/services/checkin-service/internal/http/handlers"
	"suctracker/backend/services/checkin-service/internal/http/middleware"
	"suctracker/backend/services/checkin-service/internal/metrics"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Checkins *handlers.CheckinsHandlers
	Stats    *handlers.StatsHandlers
	Stations *handlers.StationsHandlers
	Car      *handlers.CarHandlers
	Admin    *handlers.AdminHandlers
	Health   http.HandlerFunc
	Metrics  http.Handler

	RequireAdmin func(http.Handler) http.Handler
	Instruments  *metrics.Metrics
}

// NewRouter wires all HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	handle := func(route string, byMethod map[string]http.Handler) {
		mux.Handle(route, middleware.Chain(methods(byMethod), middleware.Instrument(deps.Instruments, route)))
	}
	get := func(h http.HandlerFunc) map[string]http.Handler {
		return map[string]http.Handler{http.MethodGet: h}
	}
	post := func(h http.HandlerFunc) map[string]http.Handler {
		return map[string]http.Handler{http.MethodPost: h}
	}
	admin := func(h http.HandlerFunc) map[string]http.Handler {
		return map[string]http.Handler{http.MethodPost: middleware.Chain(h, deps.RequireAdmin)}
	}

	handle("/health", get(deps.Health))
	if deps.Metrics != nil {
		mux.Handle("/metrics", methods(map[string]http.Handler{http.MethodGet: deps.Metrics}))
	}

	handle("/api/lookup", get(deps.Stations.Lookup))
	handle("/api/checkins", map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(deps.Checkins.List),
		http.MethodPost: http.HandlerFunc(deps.Checkins.Submit),
	})
	handle("/api/stats/countries", get(deps.Stats.Countries))
	handle("/api/stats/stations", get(deps.Stats.Stations))
	handle("/api/stations/history", get(deps.Stats.History))
	handle("/api/overview", get(deps.Stats.Overview))

	handle("/car", map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(deps.Car.Show),
		http.MethodPost: http.HandlerFunc(deps.Car.Submit),
	})

	handle("/admin/login", post(deps.Admin.Login))
	handle("/admin/import", admin(deps.Admin.Import))
	handle("/admin/stations/refresh", admin(deps.Admin.Refresh))

	return mux
}

// methods dispatches on the request method and answers 405 otherwise.
func methods(byMethod map[string]http.Handler) http.Handler {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
