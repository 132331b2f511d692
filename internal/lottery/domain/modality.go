package domain

import (
	"strings"
	"time"
)

// Modality é o formato da aposta: dezena, centena ou milhar
type Modality string

const (
	Tens      Modality = "tens"
	Hundreds  Modality = "hundreds"
	Thousands Modality = "thousands"
)

// Modalities lista as modalidades na ordem de exibição
var Modalities = []Modality{Tens, Hundreds, Thousands}

// aliases aceitos na entrada (nomes usados pelo front legado)
var modalityAliases = map[string]Modality{
	"tens":      Tens,
	"dezena":    Tens,
	"hundreds":  Hundreds,
	"centena":   Hundreds,
	"thousands": Thousands,
	"milhar":    Thousands,
}

// ParseModality normaliza o nome recebido do cliente
func ParseModality(s string) (Modality, error) {
	m, ok := modalityAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", &ValidationError{Field: "modality", Reason: "unknown modality " + s}
	}
	return m, nil
}

func (m Modality) String() string { return string(m) }

// DateLayout é o formato de data de aposta/sorteio (dia civil)
const DateLayout = "2006-01-02"

// ParseDate valida uma data YYYY-MM-DD e devolve a forma canônica
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return t.Format(DateLayout), nil
}
