// internal/workers/passport/check-passport-entitlement/models.go
package checkpassportentitlement

type Input struct {
	BusinessID string `json:"businessId"`
	Action     string `json:"action"`
}

// Output is also the cached entitlement. Only granted generate entitlements are cached.
type Output struct {
	Entitled   bool   `json:"entitled"`
	BusinessID string `json:"businessId"`
	Action     string `json:"action"`
	PaymentID  string `json:"paymentId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`

	// PaymentConsumed is set when the check itself spent a share or pdf payment.
	PaymentConsumed bool `json:"paymentConsumed"`
}
