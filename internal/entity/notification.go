package entity

// IPNEnvelope is the outer wrapper of the processor's instant payment
// notification callback body.
type IPNEnvelope struct {
	Data SettlementNotification `json:"data"`
}

// SettlementNotification is consumed exactly once per callback. Hash is a
// knowledge proof (hex SHA-512 of the shared master key), not a MAC over the
// body.
type SettlementNotification struct {
	Status     string              `json:"status"` // "completed" or anything else
	Hash       string              `json:"hash"`
	Invoice    NotificationInvoice `json:"invoice"`
	ReceiptURL string              `json:"receipt_url"`
}

type NotificationInvoice struct {
	Token       string `json:"token"`
	Description string `json:"description"`
}
