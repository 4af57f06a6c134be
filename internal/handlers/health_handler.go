package handlers

import (
	"context"
	"net/http"
	"time"

	"learnpath/internal/database"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports whether the database answers a ping
func Health(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, "database unavailable", "Health check failed", err)
			return
		}
		respondWithJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: db.Dialect.DriverName()})
	}
}
