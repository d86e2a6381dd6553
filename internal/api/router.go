package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/sheetviz/access-api/internal/api/handler"
	"github.com/sheetviz/access-api/internal/api/middleware"
	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
	"github.com/sheetviz/access-api/internal/infrastructure/config"
	infrahttp "github.com/sheetviz/access-api/internal/infrastructure/http"
	"github.com/sheetviz/access-api/internal/infrastructure/http/handlers"
)

// Deps bundles everything the HTTP layer needs from the composition root.
type Deps struct {
	Config  *config.Config
	Log     zerolog.Logger
	Auth    ports.AuthService
	Access  ports.AccessService
	Revoker ports.TokenRevoker
	Checks  []handlers.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.Config.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("access"))

	// --- Operational endpoints (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	infrahttp.RegisterProbes(e, d.Checks...)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Access)
	authMiddleware := middleware.Auth(d.Config.JWTSecret, d.Revoker)
	loginLimiter := echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStoreWithConfig(
		echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(d.Config.Login.RatePerSecond),
			Burst:     d.Config.Login.Burst,
			ExpiresIn: 3 * time.Minute,
		},
	))

	// --- Public routes ---
	users := e.Group("/api/users")
	users.POST("/register", authHandler.Register)
	users.POST("/login", authHandler.Login, loginLimiter)

	// --- Any authenticated caller ---
	authed := users.Group("", authMiddleware)
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/profile", userHandler.Profile)
	authed.PUT("/request-admin", userHandler.RequestAdmin)

	// --- Admin area: the service makes the per-transition decision ---
	staff := authed.Group("", middleware.RBAC(domain.RoleAdmin, domain.RoleSuperAdmin))
	staff.GET("/all", userHandler.List)
	staff.GET("/dashboard", userHandler.Dashboard)
	staff.PUT("/approve/:id", userHandler.Approve)
	staff.PUT("/reject/:id", userHandler.RejectPending)
	staff.PUT("/reject-admin/:id", userHandler.RejectAdmin)
	staff.PUT("/grant-admin/:id", userHandler.GrantAdmin)
	staff.PUT("/grant-user/:id", userHandler.GrantUser)
	staff.PUT("/unreject/:id", userHandler.GrantUser)
	staff.PUT("/block/:id", userHandler.Block)

	authed.GET("/history/:id", userHandler.History, middleware.RBAC(domain.RoleSuperAdmin))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
