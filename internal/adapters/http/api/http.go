// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodpoints/walletpoints/internal/app"
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the orchestrator.
type Dependencies interface {
	// WalletData runs the whitelist gate, scoring and ranking for one
	// canonical address.
	WalletData(ctx context.Context, address common.Address, clientIP string) (app.Response, error)
}

// WalletResponse mirrors the orchestrator's payload shape.
type WalletResponse = app.Response

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	walletHandler *WalletHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, allowCORS bool) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		walletHandler: NewWalletHandler(deps, allowCORS),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Middleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/wallet", Middleware(s.walletHandler.HandleGetWallet, "wallet"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
