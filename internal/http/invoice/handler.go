package invoice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/http/auth"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/money"
	"github.com/MrJamesThe3rd/payflow/internal/paylock"
	"github.com/MrJamesThe3rd/payflow/internal/payment"
)

type Handler struct {
	invoices *invoice.Service
	payments *payment.Service
}

func NewHandler(invoices *invoice.Service, payments *payment.Service) *Handler {
	return &Handler{invoices: invoices, payments: payments}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}/line-items", h.replaceLineItems)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/payment", h.initiatePayment)
}

type lineItemRequest struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TaxRate     string `json:"tax_rate"`
}

type createInvoiceRequest struct {
	Gateway       string            `json:"gateway"`
	Currency      string            `json:"currency"`
	LineItems     []lineItemRequest `json:"line_items"`
	FeePercentage string            `json:"fee_percentage"`
	FeeFixed      int64             `json:"fee_fixed"`
	DueDates      []time.Time       `json:"due_dates,omitempty"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, feePct, err := parseCalcInputs(req.LineItems, req.FeePercentage)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.invoices.Create(r.Context(), invoice.CreateParams{
		TenantID:      auth.TenantID(r.Context()),
		Gateway:       req.Gateway,
		Currency:      money.Currency(req.Currency),
		LineItems:     items,
		FeePercentage: feePct,
		FeeFixed:      req.FeeFixed,
		DueDates:      req.DueDates,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := invoice.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(invoice.Status(s))
	}

	invs, err := h.invoices.List(r.Context(), auth.TenantID(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(invs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inv, err := h.invoices.Get(r.Context(), auth.TenantID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type replaceLineItemsRequest struct {
	LineItems     []lineItemRequest `json:"line_items"`
	FeePercentage string            `json:"fee_percentage"`
	FeeFixed      int64             `json:"fee_fixed"`
}

func (h *Handler) replaceLineItems(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req replaceLineItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, feePct, err := parseCalcInputs(req.LineItems, req.FeePercentage)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.invoices.ReplaceLineItems(r.Context(), auth.TenantID(r.Context()), id, items, feePct, req.FeeFixed)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.invoices.Cancel(r.Context(), auth.TenantID(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type initiatePaymentResponse struct {
	Ref        string    `json:"ref"`
	PaymentURL string    `json:"payment_url,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ref, err := h.payments.Initiate(r.Context(), auth.TenantID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	resp := initiatePaymentResponse{Ref: ref.Ref, PaymentURL: ref.PaymentURL, ExpiresAt: ref.ExpiresAt}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func parseCalcInputs(items []lineItemRequest, feePercentage string) ([]invoice.LineItemParams, decimal.Decimal, error) {
	params := make([]invoice.LineItemParams, 0, len(items))

	for _, it := range items {
		rate, err := decimal.NewFromString(it.TaxRate)
		if err != nil {
			return nil, decimal.Zero, &money.ValidationError{Field: "tax_rate", Reason: err.Error()}
		}

		params = append(params, invoice.LineItemParams{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     rate,
		})
	}

	feePct := decimal.Zero

	if feePercentage != "" {
		var err error
		if feePct, err = decimal.NewFromString(feePercentage); err != nil {
			return nil, decimal.Zero, &money.ValidationError{Field: "fee_percentage", Reason: err.Error()}
		}
	}

	return params, feePct, nil
}

// writeError maps domain failures onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *money.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, verr.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, invoice.ErrNotFound):
		http.Error(w, "invoice not found", http.StatusNotFound)
	case errors.Is(err, invoice.ErrAlreadyInitiated),
		errors.Is(err, invoice.ErrImmutable),
		errors.Is(err, invoice.ErrInvalidTransition),
		errors.Is(err, paylock.ErrLockTimeout):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, gateway.ErrUnknownGateway):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			http.Error(w, "payment gateway error", http.StatusBadGateway)
			return
		}

		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
