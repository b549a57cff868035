// Package processor is a thin client for the payment processor's hosted
// checkout-invoice API.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payment-bridge-service/internal/entity"
)

const (
	liveBaseURL = "https://app.paydunya.com/api/v1"
	testBaseURL = "https://app.paydunya.com/sandbox-api/v1"
)

type Credentials struct {
	MasterKey  string
	PrivateKey string
	PublicKey  string
	Token      string
	Mode       string // "test" or "live"
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
}

func NewClient(creds Credentials) *Client {
	base := liveBaseURL
	if creds.Mode != "live" {
		base = testBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    base,
		creds:      creds,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(creds Credentials, baseURL string) *Client {
	c := NewClient(creds)
	c.baseURL = baseURL
	return c
}

type invoiceItem struct {
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	Description string  `json:"description"`
}

type createRequest struct {
	Invoice struct {
		Items       map[string]invoiceItem `json:"items"`
		TotalAmount float64                `json:"total_amount"`
		Description string                 `json:"description"`
	} `json:"invoice"`
	Store struct {
		Name          string `json:"name"`
		Tagline       string `json:"tagline,omitempty"`
		PhoneNumber   string `json:"phone_number,omitempty"`
		PostalAddress string `json:"postal_address,omitempty"`
		WebsiteURL    string `json:"website_url,omitempty"`
		LogoURL       string `json:"logo_url,omitempty"`
	} `json:"store"`
	Actions struct {
		CallbackURL string `json:"callback_url,omitempty"`
		CancelURL   string `json:"cancel_url,omitempty"`
		ReturnURL   string `json:"return_url,omitempty"`
	} `json:"actions"`
}

type createResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Description  string `json:"description"`
	Token        string `json:"token"`
}

// CreateInvoice submits a hosted invoice and returns the processor-assigned
// token and checkout URL.
func (c *Client) CreateInvoice(ctx context.Context, store entity.StoreProfile, inv entity.Invoice) (*entity.InvoiceResult, error) {
	var req createRequest
	req.Invoice.Items = make(map[string]invoiceItem, len(inv.Items))
	for i, item := range inv.Items {
		req.Invoice.Items[fmt.Sprintf("item_%d", i)] = invoiceItem{
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			Description: item.Description,
		}
	}
	req.Invoice.TotalAmount = inv.TotalAmount
	req.Invoice.Description = inv.Description
	req.Store.Name = store.Name
	req.Store.Tagline = store.Tagline
	req.Store.PhoneNumber = store.PhoneNumber
	req.Store.PostalAddress = store.PostalAddress
	req.Store.WebsiteURL = store.WebsiteURL
	req.Store.LogoURL = store.LogoURL
	req.Actions.CallbackURL = store.CallbackURL
	req.Actions.CancelURL = store.CancelURL
	req.Actions.ReturnURL = store.ReturnURL

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout-invoice/create", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("PAYDUNYA-MASTER-KEY", c.creds.MasterKey)
	httpReq.Header.Set("PAYDUNYA-PRIVATE-KEY", c.creds.PrivateKey)
	httpReq.Header.Set("PAYDUNYA-PUBLIC-KEY", c.creds.PublicKey)
	httpReq.Header.Set("PAYDUNYA-TOKEN", c.creds.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invoice create returned status %d", resp.StatusCode)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, err
	}
	if created.ResponseCode != "00" {
		return nil, fmt.Errorf("invoice create rejected: %s %s", created.ResponseCode, created.Description)
	}

	return &entity.InvoiceResult{Token: created.Token, RedirectURL: created.ResponseText}, nil
}
