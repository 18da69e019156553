package entities

import "time"

// GatewayStatus is the gateway's verdict on a charge, normalized
type GatewayStatus string

const (
	GatewayStatusSuccess GatewayStatus = "success"
	GatewayStatusFailed  GatewayStatus = "failed"
	GatewayStatusPending GatewayStatus = "pending"
)

// Known reports whether s is one of the normalized verdicts
func (s GatewayStatus) Known() bool {
	switch s {
	case GatewayStatusSuccess, GatewayStatusFailed, GatewayStatusPending:
		return true
	}
	return false
}

// GatewayResult is what the gateway reports for a reference
type GatewayResult struct {
	Reference       string        `json:"reference"`
	Status          GatewayStatus `json:"status"`
	Amount          Money         `json:"amount"`
	Currency        string        `json:"currency"`
	GatewayResponse string        `json:"gatewayResponse,omitempty"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
}

// GatewayInitialization is returned when a checkout session is opened
type GatewayInitialization struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
}

// GatewayChargeRequest asks the gateway to open a checkout for reference
type GatewayChargeRequest struct {
	Reference   string
	Email       string
	Amount      Money
	Currency    string
	CallbackURL string
	Metadata    map[string]string
}

// WebhookEvent is a parsed, signature-checked gateway callback
type WebhookEvent struct {
	Event  string
	Result GatewayResult
}

// InitializePaymentResult is returned to the client that started a deposit
type InitializePaymentResult struct {
	Reference        string       `json:"reference"`
	AuthorizationURL string       `json:"authorizationUrl"`
	AccessCode       string       `json:"accessCode,omitempty"`
	Transaction      *Transaction `json:"transaction"`
}

// TransactionView wraps a transaction with the status a client should render
type TransactionView struct {
	*Transaction
	DisplayStatus string `json:"displayStatus"`
}
