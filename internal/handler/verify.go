package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/travel-lottery/internal/service"
)

// qrImageSize is the edge length in pixels of the served QR PNG.
const qrImageSize = 256

// VerifyHandler serves draw lookups and the public verification endpoints.
type VerifyHandler struct {
	Svc *service.Service
	Log logrus.FieldLogger
}

func NewVerifyHandler(svc *service.Service, log logrus.FieldLogger) *VerifyHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &VerifyHandler{Svc: svc, Log: log}
}

type verifyReq struct {
	Payload string `json:"payload" query:"qr" validate:"required,max=128"`
}

// GetDraw handles GET /v1/draws/:id and returns the draw's public facts.
func (h *VerifyHandler) GetDraw(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid draw id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Svc.GetDraw(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	facts, err := h.Svc.DrawFacts(ctx, d)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, facts)
}

// GetDrawByCode handles GET /v1/draws/code/:code.
func (h *VerifyHandler) GetDrawByCode(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Svc.GetDrawByCode(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	facts, err := h.Svc.DrawFacts(ctx, d)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, facts)
}

// DrawQRCode handles GET /v1/draws/code/:code/qr.png: a PNG encoding the
// draw's QR token, which POST /v1/verify resolves back to the draw.
func (h *VerifyHandler) DrawQRCode(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Svc.GetDrawByCode(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	png, err := qrcode.Encode(d.QRToken, qrcode.Medium, qrImageSize)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	return c.Blob(http.StatusOK, "image/png", png)
}

// Lookup handles GET /v1/lookup/:code for any public code.
func (h *VerifyHandler) Lookup(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Svc.LookupByCode(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Verify handles POST /v1/verify {"payload": ...} and GET /v1/verify?qr=.
// Any failure is a 404 with the same message.
func (h *VerifyHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": service.ErrInvalidOrUnknownCode.Error()})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	facts, err := h.Svc.VerifyQR(ctx, req.Payload)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, facts)
}
