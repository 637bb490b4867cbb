package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// EventFeed is the read side of the event log.
type EventFeed interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /events?after=0&limit=100
func EventsHandler(feed EventFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		if err != nil {
			after = 0
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		evs, err := feed.Since(r.Context(), after, limit)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, evs)
	}
}
