// Package handler contains the HTTP handlers of the lottery API.  Handlers
// bind and validate requests, call the service layer and translate domain
// errors into status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/logging"
	"github.com/iliyamo/travel-lottery/internal/service"
)

// requestTimeout bounds the storage work done for one request.
const requestTimeout = 5 * time.Second

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator with the default tag set.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// bindAndValidate decodes the body into req and runs its validate tags.
// It writes the 400 response itself and reports whether the handler should
// continue.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Field() + ": failed " + fe.Tag()
	}
	return "invalid request"
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrLotteryNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidOrUnknownCode):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrAlreadyDrawn),
		errors.Is(err, service.ErrLotteryNotActive),
		errors.Is(err, service.ErrSoldOut):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoTicketsSold),
		errors.Is(err, service.ErrInvalidSelection),
		errors.Is(err, service.ErrInvalidLottery),
		errors.Is(err, service.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...} for err.  Unexpected errors are logged
// and hidden behind a generic message.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if log == nil {
			log = logrus.StandardLogger()
		}
		logging.FromContext(c, log).WithError(err).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
