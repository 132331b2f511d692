package events

// Evento gravado no outbox quando uma aposta é admitida
type BetPlaced struct {
	BetID     string `json:"bet_id"`
	AccountID string `json:"account_id"`
	Modality  string `json:"modality"`
	Number    string `json:"number"`
	Stake     int64  `json:"stake"`
	BetDate   string `json:"bet_date"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
