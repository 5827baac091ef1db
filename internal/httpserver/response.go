package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

func respond[T any](c *gin.Context, status int, data T, message string) {
	c.JSON(status, domain.OK(data, message))
}

// writeError answers with a failure envelope shaped like the commerce API's.
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), domain.Fail(domain.Message(err)))
}

func statusFor(err error) int {
	var (
		ve *domain.ValidationError
		ae *domain.AuthenticationError
		de *domain.DomainError
		te *domain.TransportError
	)
	switch {
	case errors.Is(err, domain.ErrAuthRequired), errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &de):
		if de.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &te):
		if te.Unauthorized() {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, domain.Fail(message))
}
