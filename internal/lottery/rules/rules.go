package rules

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata" // fuso embarcado: imagens distroless não trazem zoneinfo

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

// ModalityRule define formato, teto de exposição e multiplicador de prêmio
type ModalityRule struct {
	Digits     int
	Min        int
	Max        int
	Cap        int64
	Multiplier int64
}

// Rules é a configuração imutável do jogo. Só é construída por Default,
// Build ou Load e nenhum campo é exportado.
type Rules struct {
	modalities    map[domain.Modality]ModalityRule
	location      *time.Location
	openHour      int
	closeHour     int
	drawHour      int
	minWithdrawal int64
}

// formato numérico é fixo por modalidade; apenas teto e multiplicador são configuráveis
var baseModalities = map[domain.Modality]ModalityRule{
	domain.Tens:      {Digits: 2, Min: 1, Max: 99, Cap: 10, Multiplier: 20},
	domain.Hundreds:  {Digits: 3, Min: 1, Max: 999, Cap: 30, Multiplier: 400},
	domain.Thousands: {Digits: 4, Min: 1, Max: 9999, Cap: 50, Multiplier: 4000},
}

const (
	DefaultTimezone      = "America/Sao_Paulo"
	DefaultOpenHour      = 9
	DefaultCloseHour     = 17
	DefaultDrawHour      = 18
	DefaultMinWithdrawal = 100
)

// Default devolve as regras de produção
func Default() Rules {
	r, err := Build(Config{})
	if err != nil {
		panic(fmt.Errorf("default rules: %w", err))
	}
	return r
}

// Modality devolve a regra da modalidade
func (r Rules) Modality(m domain.Modality) (ModalityRule, error) {
	mr, ok := r.modalities[m]
	if !ok {
		return ModalityRule{}, &domain.ValidationError{Field: "modality", Reason: "unknown modality " + string(m)}
	}
	return mr, nil
}

func (r Rules) Location() *time.Location { return r.location }
func (r Rules) OpenHour() int            { return r.openHour }
func (r Rules) CloseHour() int           { return r.closeHour }
func (r Rules) DrawHour() int            { return r.drawHour }
func (r Rules) MinWithdrawal() int64     { return r.minWithdrawal }

// InWindow diz se a hora local está em [abertura, fechamento)
func (r Rules) InWindow(hour int) bool {
	return hour >= r.openHour && hour < r.closeHour
}

// Clock converte um instante em (data, hora) no fuso do jogo
func (r Rules) Clock(now time.Time) (date string, hour int) {
	local := now.In(r.location)
	return local.Format(domain.DateLayout), local.Hour()
}

// ValidateNumber confere largura fixa, só dígitos e faixa da modalidade
func (r Rules) ValidateNumber(m domain.Modality, number string) error {
	mr, err := r.Modality(m)
	if err != nil {
		return err
	}
	if len(number) != mr.Digits {
		return &domain.ValidationError{Field: "number", Reason: fmt.Sprintf("%s requires %d digits", m, mr.Digits)}
	}
	for _, c := range number {
		if c < '0' || c > '9' {
			return &domain.ValidationError{Field: "number", Reason: "digits only"}
		}
	}
	n, _ := strconv.Atoi(number)
	if n < mr.Min || n > mr.Max {
		return &domain.ValidationError{Field: "number", Reason: fmt.Sprintf("%s range is %d..%d", m, mr.Min, mr.Max)}
	}
	return nil
}

// FormatNumber preenche com zeros à esquerda até a largura da modalidade
func (mr ModalityRule) FormatNumber(n int) string {
	return fmt.Sprintf("%0*d", mr.Digits, n)
}

// Payout é o prêmio de uma aposta vencedora
func (mr ModalityRule) Payout(stake int64) int64 {
	return stake * mr.Multiplier
}
