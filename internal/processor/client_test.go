package processor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-bridge-service/internal/entity"
)

func testCreds() Credentials {
	return Credentials{
		MasterKey:  "mk",
		PrivateKey: "pk",
		PublicKey:  "pub",
		Token:      "tk",
		Mode:       "test",
	}
}

func testInvoice() entity.Invoice {
	return entity.Invoice{
		Description: "Order ID: 450789469",
		TotalAmount: 3500,
		Items: []entity.InvoiceItem{
			{Name: "IPod Nano - 8gb", Quantity: 2, UnitPrice: 1500, TotalPrice: 3000, Description: "IPod Nano"},
			{Name: "Case", Quantity: 1, UnitPrice: 500, TotalPrice: 500, Description: "Case"},
		},
	}
}

func TestCreateInvoice(t *testing.T) {
	var got createRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout-invoice/create", r.URL.Path)
		assert.Equal(t, "mk", r.Header.Get("PAYDUNYA-MASTER-KEY"))
		assert.Equal(t, "pk", r.Header.Get("PAYDUNYA-PRIVATE-KEY"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(createResponse{
			ResponseCode: "00",
			ResponseText: "https://pay.example/checkout/tok_abc",
			Token:        "tok_abc",
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testCreds(), srv.URL)
	result, err := client.CreateInvoice(context.Background(), entity.StoreProfile{Name: "Test Boutique", ReturnURL: "https://shop.example/r"}, testInvoice())
	require.NoError(t, err)

	assert.Equal(t, "tok_abc", result.Token)
	assert.Equal(t, "https://pay.example/checkout/tok_abc", result.RedirectURL)

	assert.Equal(t, "Order ID: 450789469", got.Invoice.Description)
	assert.Equal(t, 3500.0, got.Invoice.TotalAmount)
	require.Len(t, got.Invoice.Items, 2)
	assert.Equal(t, 3000.0, got.Invoice.Items["item_0"].TotalPrice)
	assert.Equal(t, "Test Boutique", got.Store.Name)
	assert.Equal(t, "https://shop.example/r", got.Actions.ReturnURL)
}

func TestCreateInvoiceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createResponse{
			ResponseCode: "1001",
			Description:  "invalid keys",
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testCreds(), srv.URL)
	_, err := client.CreateInvoice(context.Background(), entity.StoreProfile{Name: "Test"}, testInvoice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1001")
}

func TestCreateInvoiceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(testCreds(), srv.URL)
	_, err := client.CreateInvoice(context.Background(), entity.StoreProfile{Name: "Test"}, testInvoice())
	require.Error(t, err)
}

func TestModeSelectsBaseURL(t *testing.T) {
	assert.Equal(t, testBaseURL, NewClient(Credentials{Mode: "test"}).baseURL)
	assert.Equal(t, liveBaseURL, NewClient(Credentials{Mode: "live"}).baseURL)
	assert.Equal(t, testBaseURL, NewClient(Credentials{}).baseURL)
}
