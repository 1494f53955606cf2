// Package xendit adapts the Xendit invoice API to the gateway
// capability set.
package xendit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/money"
)

const Name = "xendit"

// Client is a minimal Xendit API client.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	callbackSecret string
	baseURL        string
}

// NewClient constructs a new Xendit client.
func NewClient(httpClient *http.Client, apiKey, callbackSecret, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if baseURL == "" {
		baseURL = "https://api.xendit.co"
	}

	return &Client{
		httpClient:     httpClient,
		apiKey:         apiKey,
		callbackSecret: callbackSecret,
		baseURL:        baseURL,
	}
}

func (c *Client) Name() string { return Name }

// InitiatePayment creates a Xendit invoice for the full outstanding
// amount and returns its payment reference.
func (c *Client) InitiatePayment(ctx context.Context, inv *invoice.Invoice) (*gateway.PaymentReference, error) {
	payload := map[string]any{
		"external_id":      inv.ID.String(),
		"amount":           inv.TotalAmount,
		"currency":         string(inv.Currency),
		"invoice_duration": int(time.Until(inv.ExpiresAt).Seconds()),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &gateway.Error{Gateway: Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, &gateway.Error{
			Gateway:    Name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("creating invoice: %s", bytes.TrimSpace(msg)),
		}
	}

	var apiResp struct {
		ID         string    `json:"id"`
		InvoiceURL string    `json:"invoice_url"`
		ExpiryDate time.Time `json:"expiry_date"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &gateway.Error{Gateway: Name, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return &gateway.PaymentReference{
		Ref:        apiResp.ID,
		PaymentURL: apiResp.InvoiceURL,
		ExpiresAt:  apiResp.ExpiryDate,
	}, nil
}

// callbackEvent is Xendit's native invoice-callback shape.
type callbackEvent struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	PaymentID  string `json:"payment_id"`
	Status     string `json:"status"`
	Amount     int64  `json:"paid_amount"`
	Currency   string `json:"currency"`
}

// ParseWebhook verifies the callback signature and translates the
// native payload into the canonical event shape. A bad signature or a
// malformed payload is a permanent failure.
func (c *Client) ParseWebhook(header http.Header, body []byte) (*gateway.Event, error) {
	if !c.verifySignature(header.Get("X-Callback-Token"), body) {
		return nil, &gateway.Error{
			Gateway:    Name,
			StatusCode: http.StatusUnauthorized,
			Err:        fmt.Errorf("callback signature mismatch"),
		}
	}

	var ev callbackEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, &gateway.Error{
			Gateway:    Name,
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("decoding callback: %w", err),
		}
	}

	invoiceID, err := uuid.Parse(ev.ExternalID)
	if err != nil {
		return nil, &gateway.Error{
			Gateway:    Name,
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("parsing external_id %q: %w", ev.ExternalID, err),
		}
	}

	status, err := translateStatus(ev.Status)
	if err != nil {
		return nil, &gateway.Error{Gateway: Name, StatusCode: http.StatusBadRequest, Err: err}
	}

	ref := ev.PaymentID
	if ref == "" {
		ref = ev.ID
	}

	return &gateway.Event{
		EventID:    ev.ID,
		Gateway:    Name,
		ReceivedAt: time.Now().UTC(),
		Payload: gateway.EventPayload{
			GatewayTransactionRef: ref,
			InvoiceID:             invoiceID,
			AmountPaid:            ev.Amount,
			Currency:              money.Currency(ev.Currency),
			Status:                status,
		},
	}, nil
}

func translateStatus(s string) (gateway.EventStatus, error) {
	switch s {
	case "PAID", "SETTLED":
		return gateway.EventCompleted, nil
	case "EXPIRED", "FAILED":
		return gateway.EventFailed, nil
	case "PENDING":
		return gateway.EventPending, nil
	default:
		return "", fmt.Errorf("unknown callback status %q", s)
	}
}

// verifySignature checks the HMAC-SHA256 of the body against the
// callback token header.
func (c *Client) verifySignature(token string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(c.callbackSecret))
	mac.Write(body)

	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(token))
}
