package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"housetally-backend/internal/handler"
	"housetally-backend/internal/middleware"
	"housetally-backend/internal/service"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	jwtSecret       string
}

func NewServer(checkoutService service.CheckoutService, jwtSecret string, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Error(v.Error),
			)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService, logger),
		jwtSecret:       jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	checkout := api.Group("/checkout")

	// -------- provider redirect landings (no auth) --------
	checkout.GET("/return", s.checkoutHandler.HandleReturn)
	checkout.GET("/cancel", s.checkoutHandler.HandleCancel)

	// -------- checkout API --------
	secured := checkout.Group("", middleware.Auth(s.jwtSecret))
	secured.POST("/kits/orders", s.checkoutHandler.CreateKitOrder)
	secured.POST("/premium/orders", s.checkoutHandler.CreatePremiumOrder)
	secured.POST("/kits/capture", s.checkoutHandler.CaptureKitOrder)
	secured.POST("/premium/capture", s.checkoutHandler.CapturePremiumOrder)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
