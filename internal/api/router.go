package api

import (
	"log"
	"net/http"

	"solana-vote-server/internal/observability"
)

// NewRouter wires the API routes plus the health and metrics endpoints.
func NewRouter(h *Handlers, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, WithMetrics(fn))
	}

	handle("GET /api/point/{wallet}", h.GetPoints)
	handle("POST /api/exchange", h.Exchange)
	handle("GET /api/polls", h.ListPolls)
	handle("POST /api/poll", h.CreatePoll)
	handle("POST /api/vote-tx", h.VoteTx)
	handle("POST /api/reset-all-polls", h.ResetAllPolls)

	handle("GET /health", func(w http.ResponseWriter, r *http.Request) {
		JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", observability.Handler())

	return WithLogging(logger, WithCORS(mux))
}
