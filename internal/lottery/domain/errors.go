package domain

import (
	"errors"
	"fmt"
)

// Rejeições de regra de negócio. Todas são detectadas antes de qualquer escrita.
var (
	ErrValidation             = errors.New("validation error")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrExposureCapExceeded    = errors.New("exposure cap exceeded")
	ErrOutsideBettingWindow   = errors.New("outside betting window")
	ErrBettingClosed          = errors.New("betting closed")
	ErrDuplicateDraw          = errors.New("duplicate draw")
	ErrAlreadySettled         = errors.New("already settled")
	ErrAccountNotFound        = errors.New("account not found")
	ErrDrawNotFound           = errors.New("draw not found")
	ErrBelowMinimumWithdrawal = errors.New("below minimum withdrawal")
	ErrStorage                = errors.New("internal error")
)

// ValidationError indica entrada malformada, corrigível pelo cliente
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CapExceededError carrega a folga restante para o número
type CapExceededError struct {
	Modality  Modality
	Number    string
	Date      string
	Cap       int64
	Staked    int64
	Available int64
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("exposure cap exceeded for %s/%s on %s: available=%d", e.Modality, e.Number, e.Date, e.Available)
}

func (e *CapExceededError) Is(target error) bool { return target == ErrExposureCapExceeded }

// StorageError embrulha falhas de persistência. A causa fica disponível
// para log via Unwrap, mas Error() não vaza detalhes do banco.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return ErrStorage.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Detail devolve a mensagem completa, só para logs
func (e *StorageError) Detail() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

// IsBusinessError diz se o erro é uma rejeição de regra (não deve ser
// convertido em StorageError nem repetido)
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrInsufficientFunds, ErrExposureCapExceeded,
		ErrOutsideBettingWindow, ErrBettingClosed, ErrDuplicateDraw,
		ErrAlreadySettled, ErrAccountNotFound, ErrDrawNotFound,
		ErrBelowMinimumWithdrawal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code devolve um rótulo estável do erro, usado em métricas e respostas
func Code(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrExposureCapExceeded):
		return "cap_exceeded"
	case errors.Is(err, ErrOutsideBettingWindow):
		return "outside_window"
	case errors.Is(err, ErrBettingClosed):
		return "betting_closed"
	case errors.Is(err, ErrDuplicateDraw):
		return "duplicate_draw"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrDrawNotFound):
		return "draw_not_found"
	case errors.Is(err, ErrBelowMinimumWithdrawal):
		return "below_minimum"
	default:
		return "internal"
	}
}
