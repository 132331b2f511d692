package draw

import (
	"math/rand/v2"

	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
)

// Picker escolhe o número vencedor já formatado para a modalidade
type Picker interface {
	Pick(mr rules.ModalityRule) string
}

// PickerFunc adapta uma função a Picker
type PickerFunc func(mr rules.ModalityRule) string

func (f PickerFunc) Pick(mr rules.ModalityRule) string { return f(mr) }

// RandomPicker sorteia uniformemente em [Min, Max]. Não é criptográfico.
type RandomPicker struct{}

func (RandomPicker) Pick(mr rules.ModalityRule) string {
	return mr.FormatNumber(mr.Min + rand.IntN(mr.Max-mr.Min+1))
}

// Fixed devolve sempre o mesmo número (testes e sorteios manuais)
func Fixed(number string) Picker {
	return PickerFunc(func(rules.ModalityRule) string { return number })
}
