// Package transport exposes the wallet over HTTP.
package transport

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/accountid"
	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/backend"
	"github.com/goodnatureofminers/icwallet/internal/balance"
	"github.com/goodnatureofminers/icwallet/internal/bridge"
	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/ledger"
	"github.com/goodnatureofminers/icwallet/internal/session"
	"github.com/goodnatureofminers/icwallet/internal/transfer"
	"go.uber.org/zap"
)

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 500
	maxBodyBytes        = 1 << 16
)

// Services are the wallet components the handler serves. Withdrawals and
// Archive may be nil.
type Services struct {
	Session     Session
	Balances    Balances
	Bridge      Bridge
	Sender      Sender
	Backend     Backend
	Withdrawals Withdrawals
	Archive     Archive
}

// WalletHandler serves the wallet's HTTP API.
type WalletHandler struct {
	svc    Services
	logger *zap.Logger
}

func NewWalletHandler(svc Services, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{svc: svc, logger: logger.Named("http")}
}

// Routes returns the handler's routes on a fresh mux.
func (h *WalletHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /v1/account", h.account)
	mux.HandleFunc("GET /v1/balances", h.balances)
	mux.HandleFunc("GET /v1/bridge/info", h.bridgeInfo)
	mux.HandleFunc("GET /v1/bridge/deposit-address", h.depositAddress)
	mux.HandleFunc("POST /v1/bridge/deposits", h.checkDeposits)
	mux.HandleFunc("GET /v1/bridge/withdrawals/{id}", h.withdrawalStatus)
	mux.HandleFunc("POST /v1/transfers/preview", h.previewTransfer)
	mux.HandleFunc("POST /v1/transfers", h.sendTransfer)
	mux.HandleFunc("GET /v1/history", h.history)
	mux.HandleFunc("GET /v1/history/archive", h.archive)
	mux.HandleFunc("GET /v1/contacts", h.contacts)
	mux.HandleFunc("POST /v1/contacts", h.saveContact)
	mux.HandleFunc("DELETE /v1/contacts/{id}", h.deleteContact)
	return h.logRequests(mux)
}

func (h *WalletHandler) health(w http.ResponseWriter, _ *http.Request) {
	_, err := h.svc.Session.Current()
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		SignedIn:      err == nil,
		BitcoinBridge: h.svc.Bridge.Enabled(),
	})
}

func (h *WalletHandler) account(w http.ResponseWriter, _ *http.Request) {
	token, err := h.svc.Session.Current()
	if err != nil {
		h.writeError(w, err)
		return
	}
	p := token.Principal()
	h.writeJSON(w, http.StatusOK, accountResponse{
		Principal: p.String(),
		AccountID: accountid.FromPrincipal(p, nil).String(),
	})
}

// balances serves the latest snapshot, refreshing when there is none or the
// caller asks for it with refresh=true.
func (h *WalletHandler) balances(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Session.Current(); err != nil {
		h.writeError(w, err)
		return
	}
	snap, ok := h.svc.Balances.Snapshot()
	if !ok || r.URL.Query().Get("refresh") == "true" {
		var err error
		if snap, err = h.svc.Balances.Refresh(r.Context()); err != nil {
			h.writeError(w, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, newBalancesResponse(snap))
}

func (h *WalletHandler) bridgeInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Bridge.BridgeInfo(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bridgeInfoResponse{
		MinWithdrawalAmount: info.MinWithdrawalAmount,
		MinConfirmations:    info.MinConfirmations,
		Fee:                 info.Fee,
	})
}

func (h *WalletHandler) depositAddress(w http.ResponseWriter, r *http.Request) {
	owner, sub, err := h.subject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	address, err := h.svc.Bridge.DepositAddress(r.Context(), &owner, sub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, depositAddressResponse{Address: address})
}

func (h *WalletHandler) checkDeposits(w http.ResponseWriter, r *http.Request) {
	owner, sub, err := h.subject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status, err := h.svc.Bridge.DepositStatus(r.Context(), &owner, sub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDepositStatusResponse(status))
}

func (h *WalletHandler) withdrawalStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, &paramError{Field: "id", Reason: "must be a block index"})
		return
	}
	status, err := h.svc.Bridge.WithdrawalStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, withdrawalStatusResponse{
		ID:       id,
		State:    status.State,
		TxID:     status.TxID,
		Terminal: status.Terminal(),
	})
}

func (h *WalletHandler) previewTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	send, err := h.svc.Sender.NewSend()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := send.Submit(body.form()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPreviewResponse(send.Request()))
}

// sendTransfer validates and confirms in one request. The send is bound to
// the identity signed in when the request arrived.
func (h *WalletHandler) sendTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	send, err := h.svc.Sender.NewSend()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := send.Submit(body.form()); err != nil {
		h.writeError(w, err)
		return
	}
	out, err := send.Confirm(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if out.WithdrawalID != nil && h.svc.Withdrawals != nil {
		h.svc.Withdrawals.Track(*out.WithdrawalID)
	}
	if out.Warning != nil {
		h.logger.Warn("transfer sent but not recorded", zap.String("memo", out.Memo.String()), zap.Error(out.Warning))
	}
	h.writeJSON(w, http.StatusOK, newTransferResponse(out))
}

func (h *WalletHandler) history(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Backend.TransactionHistory(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newHistoryResponse(items))
}

func (h *WalletHandler) archive(w http.ResponseWriter, r *http.Request) {
	if h.svc.Archive == nil {
		h.writeError(w, errArchiveDisabled)
		return
	}
	token, err := h.svc.Session.Current()
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxArchiveLimit {
			h.writeError(w, &paramError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", maxArchiveLimit)})
			return
		}
		limit = n
	}
	p := token.Principal()
	records, err := h.svc.Archive.Records(r.Context(), p.String(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newArchiveResponse(records))
}

func (h *WalletHandler) contacts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Backend.Contacts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]contactResponse, 0, len(list))
	for _, c := range list {
		out = append(out, contactResponse{ID: c.ID, Name: c.Name, Address: c.Address})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *WalletHandler) saveContact(w http.ResponseWriter, r *http.Request) {
	var body contactRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.Backend.SaveContact(r.Context(), body.Name, body.Address); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WalletHandler) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, &paramError{Field: "id", Reason: "must be a contact id"})
		return
	}
	if err := h.svc.Backend.DeleteContact(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subject resolves the signed-in principal and the optional hex subaccount
// query parameter.
func (h *WalletHandler) subject(r *http.Request) (identity.Principal, *accountid.Subaccount, error) {
	token, err := h.svc.Session.Current()
	if err != nil {
		return identity.Principal{}, nil, err
	}
	raw := r.URL.Query().Get("subaccount")
	if raw == "" {
		return token.Principal(), nil, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return identity.Principal{}, nil, &paramError{Field: "subaccount", Reason: "must be hex"}
	}
	sub, err := accountid.SubaccountFromBytes(b)
	if err != nil {
		return identity.Principal{}, nil, &paramError{Field: "subaccount", Reason: err.Error()}
	}
	return token.Principal(), &sub, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &paramError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (h *WalletHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

func (h *WalletHandler) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	resp := errorResponse{Error: code, Message: err.Error()}

	var verr *transfer.ValidationError
	var perr *paramError
	switch {
	case errors.As(err, &verr):
		resp.Field = verr.Field
	case errors.As(err, &perr):
		resp.Field = perr.Field
	}
	switch {
	case status == http.StatusNotImplemented:
	case status == http.StatusGatewayTimeout:
		h.logger.Debug("request timed out", zap.Error(err))
	case status >= http.StatusInternalServerError:
		h.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	h.writeJSON(w, status, resp)
}

var errArchiveDisabled = errors.New("transfer archive is not configured")

type paramError struct {
	Field  string
	Reason string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// classify maps a wallet error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var (
		verr     *transfer.ValidationError
		perr     *paramError
		ledgErr  *ledger.TransferError
		retrErr  *bridge.RetrieveBtcError
		checkErr *bridge.UpdateBalanceError
	)
	switch {
	case errors.Is(err, agent.ErrOutcomeUnknown):
		return http.StatusServiceUnavailable, "outcome_unknown"
	case errors.As(err, &verr), errors.As(err, &perr),
		errors.Is(err, backend.ErrEmptyField):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, session.ErrSignedOut):
		return http.StatusUnauthorized, "signed_out"
	case errors.Is(err, balance.ErrStale), errors.Is(err, transfer.ErrIdentityChanged):
		return http.StatusConflict, "identity_changed"
	case errors.Is(err, transfer.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, bridge.ErrBridgeUnavailable), errors.Is(err, transfer.ErrNativeNotSupported),
		errors.Is(err, errArchiveDisabled):
		return http.StatusNotImplemented, "not_supported"
	case errors.As(err, &ledgErr), errors.As(err, &retrErr), errors.As(err, &checkErr):
		return http.StatusUnprocessableEntity, "rejected"
	case errors.Is(err, agent.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *WalletHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
