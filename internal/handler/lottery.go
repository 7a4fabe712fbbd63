package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/middleware"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/service"
)

// LotteryHandler serves the public lottery reads and the player endpoints.
type LotteryHandler struct {
	Svc *service.Service
	Log logrus.FieldLogger
}

func NewLotteryHandler(svc *service.Service, log logrus.FieldLogger) *LotteryHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LotteryHandler{Svc: svc, Log: log}
}

type listLotteriesReq struct {
	Status string `query:"status" validate:"omitempty,oneof=active drawn"`
}

type purchaseReq struct {
	Numbers   []int `json:"numbers" validate:"omitempty,max=64"`
	QuickPick bool  `json:"quick_pick"`
}

// ListLotteries handles GET /v1/lotteries?status=active|drawn.
func (h *LotteryHandler) ListLotteries(c echo.Context) error {
	var req listLotteriesReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Svc.ListLotteries(ctx, model.LotteryStatus(req.Status))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Lottery{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetLottery handles GET /v1/lotteries/:id.
func (h *LotteryHandler) GetLottery(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lottery id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Svc.GetLottery(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// GetLotteryByCode handles GET /v1/lotteries/code/:code.
func (h *LotteryHandler) GetLotteryByCode(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Svc.GetLotteryByCode(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// ListDraws handles GET /v1/lotteries/:id/draws.
func (h *LotteryHandler) ListDraws(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lottery id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	draws, err := h.Svc.GetDrawsForLottery(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if draws == nil {
		draws = []model.Draw{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": draws})
}

// GetTicketByCode handles GET /v1/tickets/code/:code.
func (h *LotteryHandler) GetTicketByCode(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Svc.GetTicketByCode(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Purchase handles POST /v1/lotteries/:id/tickets.  An empty selection with
// quick_pick set asks for generated numbers.
func (h *LotteryHandler) Purchase(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lottery id"})
	}
	var req purchaseReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if len(req.Numbers) == 0 && !req.QuickPick {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "numbers or quick_pick required"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Svc.PurchaseTicket(ctx, service.PurchaseCommand{
		LotteryID:     id,
		UserID:        uid,
		Numbers:       req.Numbers,
		AutoGenerated: req.QuickPick,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// MyTickets handles GET /v1/my-tickets.
func (h *LotteryHandler) MyTickets(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	tickets, err := h.Svc.ListTicketsForUser(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}
