// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodpoints/walletpoints/internal/app"
	"github.com/goodpoints/walletpoints/pkg/logger"
)

// WalletHandler handles wallet score requests.
type WalletHandler struct {
	deps      Dependencies
	allowCORS bool
	log       logger.Logger
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(deps Dependencies, allowCORS bool) *WalletHandler {
	return &WalletHandler{
		deps:      deps,
		allowCORS: allowCORS,
		log:       logger.Named("api"),
	}
}

// HandleGetWallet handles GET /wallet?address=0x… requests.
//
// The whitelist rejection is deliberately a 200 with an error body so a
// probing client cannot distinguish it from a platform error page, while
// verified callers get a stable shape.
func (h *WalletHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	if h.allowCORS {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
		return
	}

	raw := r.URL.Query().Get("address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, ErrBadAddress)
		return
	}
	// Canonical checksummed form; differing-case inputs collapse here.
	address := common.HexToAddress(raw)

	resp, err := h.deps.WalletData(r.Context(), address, clientIP(r))
	if err != nil {
		if errors.Is(err, app.ErrNotWhitelisted) {
			writeJSON(w, http.StatusOK, errorResponse{Error: app.ErrNotWhitelisted.Error()})
			return
		}
		h.log.Error(r.Context(), "wallet data fetch failed",
			logger.String("address", address.Hex()),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// clientIP picks the original caller address for forwarding to the ranking
// backend.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
