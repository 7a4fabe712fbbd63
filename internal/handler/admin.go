package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/middleware"
	"github.com/iliyamo/travel-lottery/internal/service"
)

// AdminHandler serves the operator endpoints under /v1/admin.
type AdminHandler struct {
	Svc *service.Service
	Log logrus.FieldLogger
}

func NewAdminHandler(svc *service.Service, log logrus.FieldLogger) *AdminHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AdminHandler{Svc: svc, Log: log}
}

type createLotteryReq struct {
	Title            string    `json:"title" validate:"required,max=200"`
	Destination      string    `json:"destination" validate:"required,max=200"`
	PrizeDescription string    `json:"prize_description" validate:"max=2000"`
	TicketPrice      int64     `json:"ticket_price" validate:"required,gt=0"`
	MaxTickets       int       `json:"max_tickets" validate:"required,gt=0"`
	DrawDate         time.Time `json:"draw_date" validate:"required"`
	NumberCount      int       `json:"number_count" validate:"gte=0,lte=1000"`
	NumberMin        int       `json:"number_min" validate:"gte=0,lte=1000"`
	NumberMax        int       `json:"number_max" validate:"gte=0,lte=1000"`
}

type creditReq struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// operatorExecutor renders the draw executor id for an operator.
func operatorExecutor(uid uint64) string {
	return "operator:" + strconv.FormatUint(uid, 10)
}

// CreateLottery handles POST /v1/admin/lotteries.
func (h *AdminHandler) CreateLottery(c echo.Context) error {
	var req createLotteryReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Svc.CreateLottery(ctx, service.CreateLotteryCommand{
		Title:            req.Title,
		Destination:      req.Destination,
		PrizeDescription: req.PrizeDescription,
		TicketPrice:      req.TicketPrice,
		MaxTickets:       req.MaxTickets,
		DrawDate:         req.DrawDate,
		NumberCount:      req.NumberCount,
		NumberMin:        req.NumberMin,
		NumberMax:        req.NumberMax,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// ExecuteDraw handles POST /v1/admin/lotteries/:id/draw.  Operators may draw
// before the scheduled date.
func (h *AdminHandler) ExecuteDraw(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lottery id"})
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Svc.ExecuteDraw(ctx, id, operatorExecutor(uid))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// CreditTokens handles POST /v1/admin/users/:id/tokens.
func (h *AdminHandler) CreditTokens(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req creditReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	balance, err := h.Svc.CreditTokens(ctx, id, req.Amount)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "token_balance": balance})
}
