package topics

const (
	// Bets
	BetPlaced = "bet_placed"

	// Draws
	DrawSettled = "draw_settled"

	// Payments
	PaymentSettled = "payment_settled"

	// DLQs
	PaymentSettledDLQ = "payment_settled_dlq"
)

// Canal Redis de broadcast de resultados
const ResultsChannel = "lottery:results"
