package events

import "time"

// Evento emitido na mesma transação da liquidação de um sorteio.
// Também é o payload do broadcast de resultados em tempo real.
type DrawSettled struct {
	DrawID        string    `json:"draw_id"`
	Modality      string    `json:"modality"`
	DrawDate      string    `json:"draw_date"`
	WinningNumber string    `json:"winning_number"`
	BetCount      int       `json:"bet_count"`
	WinnerCount   int       `json:"winner_count"`
	TotalAwarded  int64     `json:"total_awarded"`
	SettledAt     time.Time `json:"settled_at"`
}
