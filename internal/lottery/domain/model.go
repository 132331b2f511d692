package domain

import "time"

// Account é o saldo de pontos de um usuário
type Account struct {
	ID        string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bet é uma aposta admitida; imutável após criada
type Bet struct {
	ID        string
	AccountID string
	Modality  Modality
	Number    string
	Stake     int64
	Date      string
	CreatedAt time.Time
}

// DrawStatus é o estado de liquidação do sorteio
type DrawStatus string

const (
	DrawPending DrawStatus = "PENDING"
	DrawSettled DrawStatus = "SETTLED"
)

// Draw é o sorteio único de uma (modalidade, data)
type Draw struct {
	ID            string
	Modality      Modality
	Date          string
	WinningNumber string
	Status        DrawStatus
	BetCount      int
	WinnerCount   int
	TotalAwarded  int64
	CreatedAt     time.Time
	SettledAt     *time.Time
}

// SettlementOutcome é o resultado de uma aposta em um sorteio liquidado
type SettlementOutcome struct {
	ID        string
	BetID     string
	DrawID    string
	IsWinner  bool
	Awarded   int64
	CreatedAt time.Time
}

// Capacity é a exposição atual de um número
type Capacity struct {
	Modality  Modality
	Number    string
	Date      string
	Staked    int64
	Available int64
	Cap       int64
}

// DrawResult é o retorno de conductDraw
type DrawResult struct {
	Draw        Draw
	WinnerCount int
}

// ResultSummary é uma linha de getResults
type ResultSummary struct {
	Draw         Draw
	WinnerCount  int
	TotalAwarded int64
}

// Winner é uma aposta vencedora exibida no detalhe do sorteio
type Winner struct {
	BetID     string
	AccountID string
	Number    string
	Stake     int64
	Awarded   int64
}

// DrawDetail é o sorteio com seus vencedores
type DrawDetail struct {
	Draw    Draw
	Winners []Winner
}

// ModalityStatus informa se o sorteio do dia já ocorreu
type ModalityStatus struct {
	Modality      Modality
	Drawn         bool
	WinningNumber string
}

// AccountBet é a aposta do usuário junto do resultado, quando houver
type AccountBet struct {
	Bet
	WinningNumber string
	Settled       bool
	IsWinner      bool
	Awarded       int64
}

// PaymentKind distingue depósito de saque
type PaymentKind string

const (
	PaymentDeposit    PaymentKind = "deposit"
	PaymentWithdrawal PaymentKind = "withdrawal"
)

// Payment é a aplicação de uma notificação de pagamento externo
type Payment struct {
	ID          string
	AccountID   string
	Kind        PaymentKind
	Points      int64
	Amount      string
	ExternalRef string
	CreatedAt   time.Time
}

// Direção e motivo dos lançamentos
const (
	EntryCredit = "CREDIT"
	EntryDebit  = "DEBIT"

	ReasonBet        = "bet"
	ReasonPrize      = "prize"
	ReasonDeposit    = "deposit"
	ReasonWithdrawal = "withdrawal"
)

// LedgerEntry registra cada movimentação de saldo
type LedgerEntry struct {
	ID           string
	AccountID    string
	Direction    string
	Reason       string
	Amount       int64
	BalanceAfter int64
	Ref          string
	CreatedAt    time.Time
}

// Dashboard são os indicadores administrativos
type Dashboard struct {
	TotalBets         int64
	TotalStaked       int64
	TotalAwarded      int64
	HouseResult       int64
	DrawsConducted    int64
	Accounts          int64
	WinnersByModality map[Modality]int64
}
