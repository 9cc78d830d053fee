package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/quantumleap-finance/staking-service/internal/directory"
	"github.com/quantumleap-finance/staking-service/internal/ledger"
	"github.com/quantumleap-finance/staking-service/internal/money"
	"github.com/quantumleap-finance/staking-service/internal/service"
	"github.com/quantumleap-finance/staking-service/internal/session"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Amounts decode from either a JSON string or number; validation happens in
// the service layer.
type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type withdrawRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Address string          `json:"address"`
}

type settlementRequest struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	acc, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// Login handles user authentication and opens the account session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, sess, err := h.svc.Login(r.Context(), req.Email, req.Password, time.Now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"email":   sess.Account.Email,
		"balance": sess.Ledger.Balance(),
	})
}

// Logout ends the session and discards its ledger state
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.svc.Logout(sess.Account.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns the dashboard overview
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Summary(sess, time.Now()))
}

// Deposit credits the account after external verification
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Deposit(r.Context(), sess, req.Amount.String(), time.Now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Withdraw debits the account and queues the payout for settlement
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Withdraw(r.Context(), sess, req.Amount.String(), req.Address, time.Now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// SettlementCallback reconciles a pending withdrawal from the external
// settlement system
func (h *Handler) SettlementCallback(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req settlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.SettleWithdrawal(sess, req.TransactionID, req.Success)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// OpenStake locks funds into a new stake
func (h *Handler) OpenStake(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stake, err := h.svc.OpenStake(sess, req.Amount.String(), time.Now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stake)
}

// ListStakes returns every stake with its progress toward maturity
func (h *Handler) ListStakes(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Ledger.Stakes(time.Now()))
}

// SyncDividends accrues dividends for the session's active stakes
func (h *Handler) SyncDividends(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res := h.svc.SyncDividends(sess, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"total_dividends": res.TotalDividends,
		"transaction":     res.Transaction,
		"balance":         sess.Ledger.Balance(),
	})
}

// ReleaseStake returns a matured stake's principal to the balance
func (h *Handler) ReleaseStake(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	t, err := h.svc.ReleaseStake(sess, mux.Vars(r)["id"], time.Now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Transactions returns the history newest-first
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Ledger.Transactions())
}

// PortfolioHistory returns the running balance series for the chart
func (h *Handler) PortfolioHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Ledger.BalanceHistory())
}

// ExportStatement returns the transaction history as an XML statement
func (h *Handler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.Statement(sess, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render statement")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(doc)
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session resolves the authenticated session from the request context.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "user ID not found in context")
		return nil, false
	}
	accountID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid user ID")
		return nil, false
	}
	sess, err := h.svc.Session(accountID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session expired, please log in again")
		return nil, false
	}
	return sess, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrAuthenticationFailed):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, directory.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrStakeNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrStakeNotMatured), errors.Is(err, ledger.ErrStakeInactive),
		errors.Is(err, ledger.ErrNotSettleable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, money.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAddress),
		errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, err.Error())
	case service.IsDomainError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
