// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/config"
	"github.com/iliyamo/travel-lottery/internal/handler"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/middleware"
	"github.com/iliyamo/travel-lottery/internal/model"
)

// Deps are the handlers and shared clients the routes need.  Redis may be
// nil, which disables caching and rate limiting.
type Deps struct {
	Auth      *handler.AuthHandler
	Lotteries *handler.LotteryHandler
	Verify    *handler.VerifyHandler
	Admin     *handler.AdminHandler
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       logrus.FieldLogger
}

// RegisterRoutes registers routes that need no authentication: the health
// probe and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers /v1/auth and the caller's profile at /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout, middleware.OptionalJWTAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RolePlayer, model.RoleOperator))
}

// RegisterPublic registers the unauthenticated browse and verification
// endpoints.  Draw reads are immutable once written and use the long-lived
// cache; listings use the short one.  Verification is rate limited.
func RegisterPublic(e *echo.Echo, d Deps) {
	shortCache := middleware.NewRedisCache(d.Cache, d.Redis)
	longCache := middleware.NewImmutableCache(d.Cache, d.Redis)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	l := d.Lotteries
	e.GET("/v1/lotteries", l.ListLotteries, shortCache)
	e.GET("/v1/lotteries/:id", l.GetLottery, shortCache)
	e.GET("/v1/lotteries/:id/draws", l.ListDraws, shortCache)
	e.GET("/v1/lotteries/code/:code", l.GetLotteryByCode, shortCache)
	e.GET("/v1/tickets/code/:code", l.GetTicketByCode, shortCache)

	v := d.Verify
	e.GET("/v1/draws/:id", v.GetDraw, longCache)
	e.GET("/v1/draws/code/:code", v.GetDrawByCode, longCache)
	e.GET("/v1/draws/code/:code/qr.png", v.DrawQRCode, longCache)
	e.GET("/v1/lookup/:code", v.Lookup, limit)
	e.POST("/v1/verify", v.Verify, limit)
	e.GET("/v1/verify", v.Verify, limit, longCache)
}

// RegisterPlayer registers the PLAYER endpoints.  Purchases are rate limited
// per user.  Middleware is attached per route rather than with Group.Use so
// unknown /v1 paths still answer 404 instead of 401.
func RegisterPlayer(e *echo.Echo, d Deps) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RolePlayer)}
	g := e.Group("/v1")
	g.POST("/lotteries/:id/tickets", d.Lotteries.Purchase,
		append(auth, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))...)
	g.GET("/my-tickets", d.Lotteries.MyTickets, auth...)
}

// RegisterAdmin registers the OPERATOR endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, d Deps) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleOperator)}
	g := e.Group("/v1/admin")
	g.POST("/lotteries", d.Admin.CreateLottery, auth...)
	g.POST("/lotteries/:id/draw", d.Admin.ExecuteDraw, auth...)
	g.POST("/users/:id/tokens", d.Admin.CreditTokens, auth...)
}

// Register installs every route group.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d)
	RegisterPlayer(e, d)
	RegisterAdmin(e, d)
}
