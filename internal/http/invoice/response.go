package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/invoice"
)

type lineItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	Subtotal    int64     `json:"subtotal"`
	TaxRate     string    `json:"tax_rate"`
	TaxAmount   int64     `json:"tax_amount"`
}

type installmentResponse struct {
	Number     int       `json:"number"`
	Amount     int64     `json:"amount"`
	TaxAmount  int64     `json:"tax_amount"`
	ServiceFee int64     `json:"service_fee"`
	DueDate    time.Time `json:"due_date"`
	Status     string    `json:"status"`
}

type invoiceResponse struct {
	ID                 uuid.UUID             `json:"id"`
	Gateway            string                `json:"gateway"`
	Currency           string                `json:"currency"`
	Subtotal           int64                 `json:"subtotal"`
	TaxTotal           int64                 `json:"tax_total"`
	ServiceFee         int64                 `json:"service_fee"`
	TotalAmount        int64                 `json:"total_amount"`
	TotalPaid          int64                 `json:"total_paid"`
	Status             string                `json:"status"`
	PaymentInitiatedAt *time.Time            `json:"payment_initiated_at,omitempty"`
	PaymentReference   *string               `json:"payment_reference,omitempty"`
	ExpiresAt          time.Time             `json:"expires_at"`
	OriginalInvoiceID  *uuid.UUID            `json:"original_invoice_id,omitempty"`
	LineItems          []lineItemResponse    `json:"line_items"`
	Installments       []installmentResponse `json:"installments"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          *time.Time            `json:"updated_at,omitempty"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:                 inv.ID,
		Gateway:            inv.Gateway,
		Currency:           string(inv.Currency),
		Subtotal:           inv.Subtotal,
		TaxTotal:           inv.TaxTotal,
		ServiceFee:         inv.ServiceFee,
		TotalAmount:        inv.TotalAmount,
		TotalPaid:          inv.TotalPaid,
		Status:             string(inv.Status),
		PaymentInitiatedAt: inv.PaymentInitiatedAt,
		PaymentReference:   inv.PaymentReference,
		ExpiresAt:          inv.ExpiresAt,
		OriginalInvoiceID:  inv.OriginalInvoiceID,
		LineItems:          make([]lineItemResponse, 0, len(inv.LineItems)),
		Installments:       make([]installmentResponse, 0, len(inv.Installments)),
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}

	for _, li := range inv.LineItems {
		resp.LineItems = append(resp.LineItems, lineItemResponse{
			ID:          li.ID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Subtotal:    li.Subtotal,
			TaxRate:     li.TaxRate,
			TaxAmount:   li.TaxAmount,
		})
	}

	for _, inst := range inv.Installments {
		resp.Installments = append(resp.Installments, installmentResponse{
			Number:     inst.Number,
			Amount:     inst.Amount,
			TaxAmount:  inst.TaxAmount,
			ServiceFee: inst.ServiceFeeAmount,
			DueDate:    inst.DueDate,
			Status:     string(inst.Status),
		})
	}

	return resp
}

func toResponseList(invs []*invoice.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toResponse(inv))
	}

	return out
}
