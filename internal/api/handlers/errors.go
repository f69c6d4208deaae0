package handlers

import (
	"context"
	"errors"
	"net/http"

	"portfolio-frontier/internal/api/models"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/storage"

	"github.com/gin-gonic/gin"
)

// requestError marks a malformed or unusable request body.
type requestError struct{ error }

func badRequest(err error) error { return requestError{err} }

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeError maps err onto the API error envelope.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, detail := classifyError(err)
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: detail})
}

// classifyError picks the HTTP status and error code for err.
func classifyError(err error) (int, models.ErrorDetail) {
	detail := func(code, message string, details map[string]interface{}) models.ErrorDetail {
		return models.ErrorDetail{Code: code, Message: message, Details: details}
	}

	var (
		reqErr       requestError
		insufficient *model.InsufficientDataError
		aborted      *model.SimulationAbortedError
		provider     *data.ProviderError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, detail("INVALID_REQUEST", err.Error(), nil)
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, detail("INSUFFICIENT_DATA", err.Error(), map[string]interface{}{
			"rows":        insufficient.Rows,
			"instruments": insufficient.Instruments,
		})
	case errors.As(err, &aborted):
		details := map[string]interface{}{"reason": aborted.Reason}
		if aborted.Trial >= 0 {
			details["trial"] = aborted.Trial
		}
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			details["field"] = verr.Field
		}
		return http.StatusUnprocessableEntity, detail("SIMULATION_ABORTED", err.Error(), details)
	case errors.As(err, &provider):
		status, code := http.StatusBadGateway, "DATA_FETCH_ERROR"
		if provider.StatusCode == http.StatusTooManyRequests {
			status, code = http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"
		}
		return status, detail(code, provider.Message, map[string]interface{}{
			"symbol":        provider.Symbol,
			"provider_code": provider.Code,
			"status_code":   provider.StatusCode,
			"retry_after":   provider.RetryAfter,
		})
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound, detail("NOT_FOUND", err.Error(), nil)
	case errors.Is(err, storage.ErrTrialNotFound):
		return http.StatusNotFound, detail("TRIAL_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, detail("TIMEOUT", err.Error(), nil)
	default:
		return http.StatusInternalServerError, detail("INTERNAL_ERROR", err.Error(), nil)
	}
}
