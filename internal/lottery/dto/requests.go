package dto

// PlaceBetRequest aposta no dia corrente; a conta vem do cabeçalho de identidade
type PlaceBetRequest struct {
	Modality string `json:"modality"` // "dezena" | "centena" | "milhar" (ou tens/hundreds/thousands)
	Number   string `json:"number"`   // com zeros à esquerda, ex: "07"
	Stake    int64  `json:"stake"`    // pontos
}

// DrawRequest conduz um sorteio. WinningNumber preenchido aceita o número
// informado em vez de sortear.
type DrawRequest struct {
	Modality      string `json:"modality"`
	Date          string `json:"date,omitempty"` // YYYY-MM-DD; vazio = hoje
	WinningNumber string `json:"winning_number,omitempty"`
}
