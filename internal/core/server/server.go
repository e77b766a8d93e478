package server

import (
	"errors"
	"fmt"

	"banner-editor/internal/core/config"
	"banner-editor/internal/core/logger"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"

	_ "banner-editor/docs/swagger"
)

const rayIDHeader = "X-Ray-ID"

// Server wraps the fiber app of the banner editor.
type Server struct {
	App *fiber.App
	cfg *config.AppConfig
}

// New builds the app with request ids, access logging, swagger and, for local
// storage, the banner image files under the static prefix.
func New(cfg *config.AppConfig) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "banner-editor",
		BodyLimit:             bodyLimit(cfg),
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Header: rayIDHeader,
	}))

	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logger.Get(),
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	if cfg.Storage.Backend == config.StorageBackendLocal && cfg.Storage.Root != "" {
		app.Static(cfg.Storage.StaticURLPrefix, cfg.Storage.Root)
	}

	return &Server{
		App: app,
		cfg: cfg,
	}
}

// bodyLimit leaves room for the multipart envelope around the largest upload.
func bodyLimit(cfg *config.AppConfig) int {
	if cfg.MaxUploadSizeMB <= 0 {
		return fiber.DefaultBodyLimit
	}
	return (cfg.MaxUploadSizeMB + 1) * 1024 * 1024
}

// errorHandler renders errors that escape the handlers (unknown routes,
// oversized bodies) in the same shape as handler error responses.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := utils.StatusMessage(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		logger.Get().Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	}

	rayID, _ := c.Locals("requestid").(string)
	return c.Status(code).JSON(fiber.Map{
		"message": message,
		"ray_id":  rayID,
	})
}

// Run listens on the configured port until the app stops.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.ServerPort)
	logger.Get().Info("Starting server", zap.String("address", addr))
	return s.App.Listen(addr)
}
