package service

import "fmt"

// Kind classifies an outcome for HTTP mapping and logging.
type Kind int

const (
	KindAuthentication Kind = iota // 401, terminal
	KindValidation                 // 400, terminal
	KindPrecondition               // expected business outcome, not an incident
	KindDownstream                 // 500, upstream detail logged only
)

// Code is the short machine-readable outcome exposed to callers.
type Code string

const (
	CodeUnauthentic         Code = "UNAUTHENTIC"
	CodeMissingOrderData    Code = "MISSING_ORDER_DATA"
	CodeMissingStore        Code = "MISSING_STORE"
	CodeStaleOrder          Code = "STALE_ORDER"
	CodeAlreadyPaid         Code = "ALREADY_PAID"
	CodeInvoiceCreateFailed Code = "INVOICE_CREATE_FAILED"
	CodeEmailSendFailed     Code = "EMAIL_SEND_FAILED"
	CodeDedupUnavailable    Code = "DEDUP_UNAVAILABLE"
	CodeOrderIDNotFound     Code = "ORDER_ID_NOT_FOUND"
	CodeOrderMutationFailed Code = "ORDER_MUTATION_FAILED"
	CodeReceiptAttachFailed Code = "RECEIPT_ATTACH_FAILED"
)

// BridgeError carries the outcome taxonomy across the service boundary. The
// wrapped error is for logs only and never reaches an external caller.
type BridgeError struct {
	Kind Kind
	Code Code
	Err  error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *BridgeError) Unwrap() error { return e.Err }

func authErr(code Code) *BridgeError {
	return &BridgeError{Kind: KindAuthentication, Code: code}
}

func validationErr(code Code, err error) *BridgeError {
	return &BridgeError{Kind: KindValidation, Code: code, Err: err}
}

func preconditionErr(code Code) *BridgeError {
	return &BridgeError{Kind: KindPrecondition, Code: code}
}

func downstreamErr(code Code, err error) *BridgeError {
	return &BridgeError{Kind: KindDownstream, Code: code, Err: err}
}
