package entity

// Invoice is the hosted invoice requested from the payment processor. It is
// built per order, submitted once, and never persisted locally.
type Invoice struct {
	Description string
	Items       []InvoiceItem
	TotalAmount float64
}

type InvoiceItem struct {
	Name        string
	Quantity    int
	UnitPrice   float64
	TotalPrice  float64
	Description string
}

// InvoiceResult carries the processor-assigned token and hosted checkout URL.
type InvoiceResult struct {
	Token       string
	RedirectURL string
}

// StoreProfile is the merchant profile sent along with every invoice. The
// return URL is order-specific, so a profile is derived per order from the
// static configuration.
type StoreProfile struct {
	Name          string
	Tagline       string
	PhoneNumber   string
	PostalAddress string
	WebsiteURL    string
	LogoURL       string
	CallbackURL   string
	CancelURL     string
	ReturnURL     string
}
