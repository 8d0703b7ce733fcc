package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lumenlater/lumen-later/application"
	"github.com/lumenlater/lumen-later/domain/entities"
)

// Handler serves the ledger HTTP API over the application facade.
type Handler struct {
	app *application.App
}

// NewHandler creates a new API handler.
func NewHandler(app *application.App) *Handler {
	return &Handler{app: app}
}

// GetProtocolConstants returns the protocol parameter table.
func (h *Handler) GetProtocolConstants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entities.ProtocolConstants())
}

type initializeRequest struct {
	Treasury      string `json:"treasury"`
	InsuranceFund string `json:"insurance_fund"`
}

// Initialize writes the protocol config with the caller as admin.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.app.Initialize(r.Context(), callerAccount(r), req.Treasury, req.InsuranceFund); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// GetConfig returns the protocol configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.app.GetConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type mintRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// MintAsset credits settlement asset to an account. Admin only.
func (h *Handler) MintAsset(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.app.MintAsset(r.Context(), callerAccount(r), req.To, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssetBalance returns an account's settlement-asset balance.
func (h *Handler) GetAssetBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	balance, err := h.app.AssetBalance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account, "balance": balance})
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit adds the caller's funds to the pool.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	credited, err := h.app.Deposit(r.Context(), callerAccount(r), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"credited": credited})
}

// Withdraw returns available pool funds to the caller.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	withdrawn, err := h.app.Withdraw(r.Context(), callerAccount(r), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"withdrawn": withdrawn})
}

// GetPoolBalance returns an account's total/locked/available pool balance.
func (h *Handler) GetPoolBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	info, err := h.app.PoolBalance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetPoolStats returns a snapshot of the pool ledger.
func (h *Handler) GetPoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.GetPoolStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UpdateIndex reconciles the pool index. Anyone may trigger it.
func (h *Handler) UpdateIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.app.UpdateIndex(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type enrollRequest struct {
	InfoID string `json:"info_id"`
}

// EnrollMerchant registers the caller as a pending merchant.
func (h *Handler) EnrollMerchant(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	merchant, err := h.app.EnrollMerchant(r.Context(), callerAccount(r), req.InfoID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, merchant)
}

type statusRequest struct {
	Status entities.MerchantStatus `json:"status"`
}

// UpdateMerchantStatus changes a merchant's status. Caller must be the admin.
func (h *Handler) UpdateMerchantStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account := mux.Vars(r)["account"]
	if err := h.app.UpdateMerchantStatus(r.Context(), callerAccount(r), account, req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMerchant returns a merchant record.
func (h *Handler) GetMerchant(w http.ResponseWriter, r *http.Request) {
	merchant, err := h.app.GetMerchant(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merchant)
}

type createBillRequest struct {
	User     string `json:"user"`
	Amount   int64  `json:"amount"`
	OrderRef string `json:"order_ref"`
}

// CreateBill issues a bill with the caller as merchant.
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	billID, err := h.app.CreateBill(r.Context(), callerAccount(r), req.User, req.Amount, req.OrderRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"bill_id": billID})
}

// GetBill returns a bill by ID.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid bill id", http.StatusBadRequest)
		return
	}

	bill, err := h.app.GetBill(r.Context(), billID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// PayBill settles a created bill with the caller's pool credit.
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid bill id", http.StatusBadRequest)
		return
	}

	if err := h.app.PayBill(r.Context(), billID, callerAccount(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RepayBill repays the caller's bill.
func (h *Handler) RepayBill(w http.ResponseWriter, r *http.Request) {
	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid bill id", http.StatusBadRequest)
		return
	}

	if err := h.app.RepayBill(r.Context(), billID, callerAccount(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LiquidateBill force-closes a delinquent bill with the caller as
// liquidator.
func (h *Handler) LiquidateBill(w http.ResponseWriter, r *http.Request) {
	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid bill id", http.StatusBadRequest)
		return
	}

	if err := h.app.LiquidateBill(r.Context(), billID, callerAccount(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBorrowingPower returns a user's derived credit view.
func (h *Handler) GetBorrowingPower(w http.ResponseWriter, r *http.Request) {
	power, err := h.app.GetBorrowingPower(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, power)
}

func billIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
