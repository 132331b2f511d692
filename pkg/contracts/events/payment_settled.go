package events

import "time"

// Notificação do provedor de pagamentos consumida pelo payment-worker.
// Amount vem na unidade externa, como texto decimal ("150.75").
type PaymentSettled struct {
	ExternalRef string    `json:"external_ref"`
	AccountID   string    `json:"account_id"`
	Kind        string    `json:"kind"` // "deposit" | "withdrawal"
	Amount      string    `json:"amount"`
	Ts          time.Time `json:"ts"`
}

// PaymentRejected vai para a DLQ junto do motivo
type PaymentRejected struct {
	Payment PaymentSettled `json:"payment"`
	Reason  string         `json:"reason"`
	Ts      time.Time      `json:"ts"`
}
