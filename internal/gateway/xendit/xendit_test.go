package xendit_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/gateway/xendit"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

func TestClient_InitiatePayment(t *testing.T) {
	inv := &invoice.Invoice{
		ID:          uuid.New(),
		Currency:    "IDR",
		TotalAmount: 114_900,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/invoices", r.URL.Path)

			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "api-key", user)

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, inv.ID.String(), req["external_id"])
			assert.Equal(t, float64(114_900), req["amount"])

			json.NewEncoder(w).Encode(map[string]any{
				"id":          "inv-123",
				"invoice_url": "https://checkout.example/inv-123",
			})
		}))
		defer srv.Close()

		c := xendit.NewClient(srv.Client(), "api-key", "secret", srv.URL)

		ref, err := c.InitiatePayment(context.Background(), inv)
		require.NoError(t, err)
		assert.Equal(t, "inv-123", ref.Ref)
		assert.Equal(t, "https://checkout.example/inv-123", ref.PaymentURL)
	})

	t.Run("ServerErrorIsTransient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := xendit.NewClient(srv.Client(), "api-key", "secret", srv.URL)

		_, err := c.InitiatePayment(context.Background(), inv)
		require.Error(t, err)
		assert.True(t, gateway.IsTransient(err))
	})

	t.Run("ClientErrorIsPermanent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad api key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := xendit.NewClient(srv.Client(), "api-key", "secret", srv.URL)

		_, err := c.InitiatePayment(context.Background(), inv)
		require.Error(t, err)
		assert.False(t, gateway.IsTransient(err))
	})
}

func TestClient_ParseWebhook(t *testing.T) {
	c := xendit.NewClient(nil, "api-key", "secret", "")
	invoiceID := uuid.New()

	body := []byte(fmt.Sprintf(`{
		"id": "evt-1",
		"external_id": %q,
		"payment_id": "pay-9",
		"status": "PAID",
		"paid_amount": 114900,
		"currency": "IDR"
	}`, invoiceID))

	t.Run("Valid", func(t *testing.T) {
		header := http.Header{}
		header.Set("X-Callback-Token", sign("secret", body))

		ev, err := c.ParseWebhook(header, body)
		require.NoError(t, err)

		assert.Equal(t, "evt-1", ev.EventID)
		assert.Equal(t, xendit.Name, ev.Gateway)
		assert.Equal(t, "pay-9", ev.Payload.GatewayTransactionRef)
		assert.Equal(t, invoiceID, ev.Payload.InvoiceID)
		assert.Equal(t, int64(114_900), ev.Payload.AmountPaid)
		assert.Equal(t, gateway.EventCompleted, ev.Payload.Status)
	})

	t.Run("BadSignature", func(t *testing.T) {
		header := http.Header{}
		header.Set("X-Callback-Token", "forged")

		_, err := c.ParseWebhook(header, body)
		require.Error(t, err)
		assert.False(t, gateway.IsTransient(err))
	})

	t.Run("MalformedPayload", func(t *testing.T) {
		bad := []byte(`{"id":`)
		header := http.Header{}
		header.Set("X-Callback-Token", sign("secret", bad))

		_, err := c.ParseWebhook(header, bad)
		require.Error(t, err)
		assert.False(t, gateway.IsTransient(err))
	})

	t.Run("ExpiredMapsToFailed", func(t *testing.T) {
		expired := []byte(fmt.Sprintf(`{"id":"evt-2","external_id":%q,"status":"EXPIRED","currency":"IDR"}`, invoiceID))
		header := http.Header{}
		header.Set("X-Callback-Token", sign("secret", expired))

		ev, err := c.ParseWebhook(header, expired)
		require.NoError(t, err)
		assert.Equal(t, gateway.EventFailed, ev.Payload.Status)
	})
}
