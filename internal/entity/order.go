package entity

import (
	"strconv"
	"time"
)

// Order is the order-creation webhook payload as delivered by the commerce
// platform. Monetary amounts arrive as decimal strings and are parsed on use.
type Order struct {
	ID                int64      `json:"id"`
	OrderNumber       int        `json:"order_number"`
	CreatedAt         time.Time  `json:"created_at"`
	FinancialStatus   string     `json:"financial_status"` // e.g. "pending", "paid"
	Gateway           string     `json:"gateway"`
	CurrentTotalPrice string     `json:"current_total_price"`
	Email             string     `json:"email"`
	OrderStatusURL    string     `json:"order_status_url"`
	Customer          Customer   `json:"customer"`
	LineItems         []LineItem `json:"line_items"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns the customer name suitable for an email subject.
func (c Customer) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

type LineItem struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	// TotalPrice is present on the payload but never trusted; line subtotals
	// are recomputed locally from quantity and unit price.
	TotalPrice string `json:"total_price"`
}

// UnitPrice parses the decimal unit price of the line item.
func (li LineItem) UnitPrice() (float64, error) {
	return strconv.ParseFloat(li.Price, 64)
}

// TotalPrice parses the decimal order total.
func (o *Order) TotalPrice() (float64, error) {
	return strconv.ParseFloat(o.CurrentTotalPrice, 64)
}

// OrderIDString returns the platform order identifier in its textual form,
// as embedded in invoice descriptions.
func (o *Order) OrderIDString() string {
	return strconv.FormatInt(o.ID, 10)
}
