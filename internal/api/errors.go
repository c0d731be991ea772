package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/middleware"
	"github.com/smart-disease-client/internal/session"
)

// statusFor maps a domain error to an HTTP status and an APIError code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownVariant):
		return http.StatusBadRequest, domain.ErrInvalidInput
	case errors.Is(err, domain.ErrUnknownField), errors.As(err, new(*domain.ValidationError)):
		return http.StatusUnprocessableEntity, domain.ErrValidation
	case errors.Is(err, domain.ErrEmptyMessage):
		return http.StatusBadRequest, domain.ErrInvalidInput
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return http.StatusConflict, domain.ErrSubmissionConflict
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, domain.ErrSubmissionStale
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone, domain.ErrInvalidInput
	case domain.KindOf(err) != "":
		return http.StatusBadGateway, domain.ErrExternalAPI
	default:
		return http.StatusInternalServerError, domain.ErrInternalServer
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	code, apiCode := statusFor(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		s.logger.WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).WithError(err).Error("Request failed")
		message = http.StatusText(code)
	}
	var details string
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		details = ve.Field
	}
	c.AbortWithStatusJSON(code, domain.NewAPIError(apiCode, message, details, c.GetString(middleware.CorrelationIDKey)))
}

func (s *Server) badRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput, "Malformed request body", details, c.GetString(middleware.CorrelationIDKey)))
}
