// Package api exposes the HTTP surface: point queries, exchanges, poll
// listing and commands, and unsigned vote transaction hand-off. Every
// failure is caught here and turned into a structured response; nothing
// crashes the process.
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/exchange"
	"solana-vote-server/internal/poll"
	"solana-vote-server/internal/solana"
	"solana-vote-server/internal/storage"
	"solana-vote-server/internal/vote"
)

// Handlers serves the API endpoints.
type Handlers struct {
	orchestrator *exchange.Orchestrator
	gateway      *poll.Gateway
	votes        *vote.Service
	logger       *log.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(orchestrator *exchange.Orchestrator, gateway *poll.Gateway, votes *vote.Service, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		orchestrator: orchestrator,
		gateway:      gateway,
		votes:        votes,
		logger:       logger,
	}
}

// GetPoints handles GET /api/point/{wallet}.
func (h *Handlers) GetPoints(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")

	points, err := h.orchestrator.Points(r.Context(), wallet)
	if err != nil {
		if errors.Is(err, exchange.ErrInvalidRequest) {
			ErrorResponse(w, http.StatusBadRequest, "invalid wallet address")
			return
		}
		h.logger.Printf("get points: %v", err)
		ErrorResponse(w, http.StatusInternalServerError, "failed to read balance")
		return
	}

	JSONResponse(w, http.StatusOK, map[string]int64{"points": points})
}

type exchangeRequest struct {
	WalletAddress string `json:"walletAddress"`
	Amount        int64  `json:"amount"`
}

type exchangeResponse struct {
	Message         string `json:"message"`
	TxSignature     string `json:"txSignature"`
	RemainingPoints int64  `json:"remainingPoints"`
}

// Exchange handles POST /api/exchange.
func (h *Handlers) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.WalletAddress == "" || req.Amount == 0 {
		ErrorResponse(w, http.StatusBadRequest, "walletAddress and amount are required")
		return
	}

	result, err := h.orchestrator.Exchange(r.Context(), req.WalletAddress, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, exchange.ErrInvalidRequest):
			ErrorResponse(w, http.StatusBadRequest, "invalid wallet address or amount")
		case errors.Is(err, storage.ErrInsufficientBalance):
			ErrorResponse(w, http.StatusBadRequest, "insufficient points")
		case errors.Is(err, solana.ErrConfirmationTimeout):
			// Submitted but unconfirmed: the outcome is unknown, which
			// the caller must be able to tell apart from a rejection.
			h.logger.Printf("exchange ambiguous: %v", err)
			ErrorResponse(w, http.StatusInternalServerError, "transfer submitted but not confirmed; check your balance later")
		default:
			h.logger.Printf("exchange failed: %v", err)
			ErrorResponse(w, http.StatusInternalServerError, "token transfer failed")
		}
		return
	}

	JSONResponse(w, http.StatusOK, exchangeResponse{
		Message:         fmt.Sprintf("%d token(s) transferred successfully", req.Amount),
		TxSignature:     result.TxSignature,
		RemainingPoints: result.NewBalance,
	})
}

// ListPolls handles GET /api/polls.
func (h *Handlers) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.gateway.ListActivePolls(r.Context())
	if err != nil {
		h.logger.Printf("list polls: %v", err)
		ErrorResponse(w, http.StatusInternalServerError, "failed to fetch polls")
		return
	}

	JSONResponse(w, http.StatusOK, map[string][]*domain.Poll{"polls": polls})
}

type createPollRequest struct {
	Title        string   `json:"title"`
	Candidates   []string `json:"candidates"`
	Deadline     int64    `json:"deadline"`
	RequiredMint string   `json:"requiredMint"`
}

// CreatePoll handles POST /api/poll.
func (h *Handlers) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pollPubkey, err := h.gateway.CreatePoll(r.Context(), req.Title, req.Candidates, req.Deadline, req.RequiredMint)
	if err != nil {
		if errors.Is(err, poll.ErrInvalidRequest) {
			ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Printf("create poll: %v", err)
		ErrorResponse(w, http.StatusInternalServerError, "failed to create poll")
		return
	}

	JSONResponse(w, http.StatusOK, map[string]string{
		"message":    "Poll created successfully",
		"pollPubkey": pollPubkey,
	})
}

type voteTxRequest struct {
	PollPubkey     string `json:"pollPubkey"`
	CandidateIndex int    `json:"candidateIndex"`
	Amount         uint64 `json:"amount"`
	RequiredMint   string `json:"requiredMint"`
	VoterAddress   string `json:"voterAddress"`
}

// VoteTx handles POST /api/vote-tx.
func (h *Handlers) VoteTx(w http.ResponseWriter, r *http.Request) {
	var req voteTxRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txBase64, err := h.votes.BuildVoteTransaction(r.Context(), vote.Request{
		PollPubkey:     req.PollPubkey,
		CandidateIndex: req.CandidateIndex,
		Amount:         req.Amount,
		RequiredMint:   req.RequiredMint,
		VoterAddress:   req.VoterAddress,
	})
	if err != nil {
		if errors.Is(err, vote.ErrInvalidRequest) {
			ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Printf("build vote tx: %v", err)
		ErrorResponse(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	JSONResponse(w, http.StatusOK, map[string]string{"tx": txBase64})
}

type resetResultEntry struct {
	Poll  string `json:"poll"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ResetAllPolls handles POST /api/reset-all-polls.
func (h *Handlers) ResetAllPolls(w http.ResponseWriter, r *http.Request) {
	results, err := h.gateway.ResetAllPolls(r.Context())
	if err != nil {
		h.logger.Printf("reset all polls: %v", err)
		ErrorResponse(w, http.StatusInternalServerError, "failed to reset polls")
		return
	}

	entries := make([]resetResultEntry, 0, len(results))
	failed := 0
	for _, res := range results {
		entry := resetResultEntry{Poll: res.Poll, OK: res.Err == nil}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			failed++
		}
		entries = append(entries, entry)
	}

	message := "All polls reset successfully"
	if failed > 0 {
		message = fmt.Sprintf("%d of %d polls failed to reset", failed, len(results))
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"results": entries,
	})
}
