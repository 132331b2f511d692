package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/dto"
)

// statusOf traduz a taxonomia de erros do domínio em status HTTP
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrOutsideBettingWindow):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrDrawNotFound):
		return http.StatusNotFound
	case domain.IsBusinessError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError responde o erro; falhas de armazenamento vão para o log e o
// cliente recebe só "internal error"
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := dto.ErrorResponse{Error: err.Error(), Code: domain.Code(err)}

	var capErr *domain.CapExceededError
	if errors.As(err, &capErr) {
		resp.Available = &capErr.Available
	}
	if status == http.StatusInternalServerError {
		detail := err.Error()
		var se *domain.StorageError
		if errors.As(err, &se) {
			detail = se.Detail()
		}
		a.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("cause", detail))
		resp = dto.ErrorResponse{Error: domain.ErrStorage.Error(), Code: "internal"}
	}
	writeJSON(w, status, resp)
}
