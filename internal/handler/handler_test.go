package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-lottery/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		service.ErrLotteryNotFound:      http.StatusNotFound,
		service.ErrNotFound:             http.StatusNotFound,
		service.ErrInvalidOrUnknownCode: http.StatusNotFound,
		service.ErrInsufficientTokens:   http.StatusPaymentRequired,
		service.ErrAlreadyDrawn:         http.StatusConflict,
		service.ErrLotteryNotActive:     http.StatusConflict,
		service.ErrSoldOut:              http.StatusConflict,
		service.ErrNoTicketsSold:        http.StatusUnprocessableEntity,
		service.ErrInvalidSelection:     http.StatusUnprocessableEntity,
		service.ErrInvalidLottery:       http.StatusUnprocessableEntity,
		context.DeadlineExceeded:        http.StatusServiceUnavailable,
		errors.New("boom"):              http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
		assert.Equal(t, want, statusFor(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, respondError(c, nil, errors.New("dial tcp 10.0.0.1:3306: refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	run := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		var out creditReq
		ok, err := bindAndValidate(e.NewContext(req, rec), &out)
		require.NoError(t, err)
		if ok {
			rec.WriteHeader(http.StatusOK)
		}
		return rec
	}

	assert.Equal(t, http.StatusOK, run(`{"amount":5}`).Code)

	rec := run(`{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Amount")

	assert.Equal(t, http.StatusBadRequest, run(`{"amount":`).Code)
}

func TestParseID(t *testing.T) {
	e := echo.New()
	for in, want := range map[string]bool{"1": true, "42": true, "0": false, "-3": false, "abc": false, "": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(in)
		_, ok := parseID(c, "id")
		assert.Equal(t, want, ok, in)
	}
}

func TestOperatorExecutor(t *testing.T) {
	assert.Equal(t, "operator:17", operatorExecutor(17))
}
