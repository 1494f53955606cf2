package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/http/auth"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/ledger"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

type Handler struct {
	ledger   *ledger.Service
	invoices *invoice.Service
}

func NewHandler(ledgerSvc *ledger.Service, invoices *invoice.Service) *Handler {
	return &Handler{ledger: ledgerSvc, invoices: invoices}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/refund", h.refund)
}

type transactionResponse struct {
	ID                    uuid.UUID  `json:"id"`
	InvoiceID             uuid.UUID  `json:"invoice_id"`
	InstallmentNumber     *int       `json:"installment_number,omitempty"`
	Gateway               string     `json:"gateway"`
	GatewayTransactionRef string     `json:"gateway_transaction_ref"`
	Currency              string     `json:"currency"`
	AmountPaid            int64      `json:"amount_paid"`
	OverpaymentAmount     *int64     `json:"overpayment_amount,omitempty"`
	Status                string     `json:"status"`
	RefundID              *uuid.UUID `json:"refund_id,omitempty"`
	RefundAmount          *int64     `json:"refund_amount,omitempty"`
	RefundReason          *string    `json:"refund_reason,omitempty"`
	RefundTimestamp       *time.Time `json:"refund_timestamp,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func toResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                    tx.ID,
		InvoiceID:             tx.InvoiceID,
		InstallmentNumber:     tx.InstallmentNumber,
		Gateway:               tx.Gateway,
		GatewayTransactionRef: tx.GatewayTransactionRef,
		Currency:              string(tx.Currency),
		AmountPaid:            tx.AmountPaid,
		OverpaymentAmount:     tx.OverpaymentAmount,
		Status:                string(tx.Status),
		RefundID:              tx.RefundID,
		RefundAmount:          tx.RefundAmount,
		RefundReason:          tx.RefundReason,
		RefundTimestamp:       tx.RefundTimestamp,
		CreatedAt:             tx.CreatedAt,
	}
}

// list returns the transactions recorded against one of the tenant's
// invoices.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(r.URL.Query().Get("invoice_id"))
	if err != nil {
		http.Error(w, "invoice_id query parameter required", http.StatusBadRequest)
		return
	}

	// Resolving the invoice under the tenant enforces isolation.
	if _, err := h.invoices.Get(r.Context(), auth.TenantID(r.Context()), invoiceID); err != nil {
		h.writeError(w, err)
		return
	}

	txs, err := h.ledger.List(r.Context(), invoiceID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toResponse(tx))
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type refundResponse struct {
	RefundID    uuid.UUID           `json:"refund_id"`
	Transaction transactionResponse `json:"transaction"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if _, err := h.invoices.Get(r.Context(), auth.TenantID(r.Context()), tx.InvoiceID); err != nil {
		h.writeError(w, err)
		return
	}

	outcome, err := h.ledger.RecordRefund(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	resp := refundResponse{RefundID: outcome.RefundID, Transaction: toResponse(outcome.Transaction)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *money.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, verr.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, invoice.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrNotRefundable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
