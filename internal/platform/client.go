// Package platform is a thin client for the commerce platform's admin
// GraphQL API, covering the two mutations settlement needs.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const markOrderPaidMutation = `mutation orderMarkAsPaid($input: OrderMarkAsPaidInput!) {
  orderMarkAsPaid(input: $input) {
    order { id displayFinancialStatus }
    userErrors { field message }
  }
}`

const metafieldsSetMutation = `mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id }
    userErrors { field message }
  }
}`

type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
}

// NewClient builds a client against https://<shopDomain>/admin/api/<apiVersion>/graphql.json.
func NewClient(shopDomain, accessToken, apiVersion string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion),
		accessToken: accessToken,
	}
}

// NewClientWithEndpoint is used by tests to point the client at a stub server.
func NewClientWithEndpoint(endpoint, accessToken string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		endpoint:    endpoint,
		accessToken: accessToken,
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type graphqlResponse struct {
	Data struct {
		OrderMarkAsPaid struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"orderMarkAsPaid"`
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// MarkOrderPaid flips the order's financial status to paid. orderID is the
// platform's numeric identifier in textual form; the global gid is derived
// here.
func (c *Client) MarkOrderPaid(ctx context.Context, orderID string) error {
	resp, err := c.do(ctx, markOrderPaidMutation, map[string]interface{}{
		"input": map[string]interface{}{
			"id": orderGID(orderID),
		},
	})
	if err != nil {
		return fmt.Errorf("orderMarkAsPaid: %w", err)
	}
	if len(resp.Data.OrderMarkAsPaid.UserErrors) > 0 {
		return fmt.Errorf("orderMarkAsPaid: %s", resp.Data.OrderMarkAsPaid.UserErrors[0].Message)
	}
	return nil
}

// AttachReceipt records the receipt URL as an order metafield.
func (c *Client) AttachReceipt(ctx context.Context, orderID, receiptURL string) error {
	resp, err := c.do(ctx, metafieldsSetMutation, map[string]interface{}{
		"metafields": []map[string]interface{}{
			{
				"ownerId":   orderGID(orderID),
				"namespace": "payment_bridge",
				"key":       "receipt_url",
				"type":      "url",
				"value":     receiptURL,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("metafieldsSet: %w", err)
	}
	if len(resp.Data.MetafieldsSet.UserErrors) > 0 {
		return fmt.Errorf("metafieldsSet: %s", resp.Data.MetafieldsSet.UserErrors[0].Message)
	}
	return nil
}

func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}) (*graphqlResponse, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphql returned status %d", httpResp.StatusCode)
	}

	var resp graphqlResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}
	return &resp, nil
}

func orderGID(orderID string) string {
	return fmt.Sprintf("gid://shopify/Order/%s", orderID)
}
