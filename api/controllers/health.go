package controllers

import (
	"context"
	"net/http"

	"github.com/bitedash/bitedash-backend/api/responses"
	"github.com/bitedash/bitedash-backend/pkg/logger"
)

// Pinger is any dependency that can report liveness of its backing system.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness only.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady checks every registered dependency and reports per-dependency
// status. Any failing dependency turns the response into a 503.
func HealthReady(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]string, len(deps))
		healthy := true

		for name, dep := range deps {
			if dep == nil {
				statuses[name] = "not configured"
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				statuses[name] = err.Error()
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "health check failed: "+name, err)
				}
				continue
			}
			statuses[name] = "ok"
		}

		payload := map[string]any{
			"status":       "ok",
			"dependencies": statuses,
		}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
