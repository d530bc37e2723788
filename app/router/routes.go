// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/handlers"
	"github.com/ptichkin/brooder/app/middleware"
	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown() error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	serverCfg        config.ServerConfig
	authMiddleware   *middleware.AuthMiddleware
	stockHandler     *handlers.StockHandler
	orderHandler     *handlers.OrderHandler
	phoneHandler     *handlers.PhoneHandler
	promotionHandler *handlers.PromotionHandler
	adminHandler     *handlers.AdminHandler
	botHandler       *handlers.BotHandler
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	serverCfg config.ServerConfig,
	authMiddleware *middleware.AuthMiddleware,
	stockHandler *handlers.StockHandler,
	orderHandler *handlers.OrderHandler,
	phoneHandler *handlers.PhoneHandler,
	promotionHandler *handlers.PromotionHandler,
	adminHandler *handlers.AdminHandler,
	botHandler *handlers.BotHandler,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Brooder API",
		ServerHeader: "Brooder",
		ErrorHandler: errorHandler,
		BodyLimit:    serverCfg.BodyLimit,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:              app,
		serverCfg:        serverCfg,
		authMiddleware:   authMiddleware,
		stockHandler:     stockHandler,
		orderHandler:     orderHandler,
		phoneHandler:     phoneHandler,
		promotionHandler: promotionHandler,
		adminHandler:     adminHandler,
		botHandler:       botHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	api.Get("/health", r.healthCheck)

	// Public catalog surface
	api.Get("/stocks", r.stockHandler.ListAvailable)
	api.Get("/stocks/:id", r.stockHandler.Get)
	api.Get("/promotions", r.promotionHandler.ListActive)

	// Order intake and the customer lifecycle actions come from the bot
	// gateway, which authenticates the chat user itself.
	api.Post("/orders", r.orderHandler.Place)
	api.Get("/users/:userID/orders", r.orderHandler.ListForUser)
	api.Post("/users/:userID/orders/:id/confirm", r.orderHandler.ConfirmOwn)
	api.Post("/users/:userID/orders/:id/cancel", r.orderHandler.CancelOwn)

	// Wizard surface for the chat gateway
	wizard := api.Group("/bot/:userID/wizard")
	wizard.Get("/", r.botHandler.State)
	wizard.Post("/start", r.botHandler.Start)
	wizard.Post("/back", r.botHandler.Back)
	wizard.Post("/steps/:step", r.botHandler.Answer)
	wizard.Post("/confirm", r.botHandler.Confirm)
	wizard.Post("/cancel", r.botHandler.Cancel)

	// Admin auth
	api.Post("/admin/login", r.adminHandler.Login)

	// Admin surface
	admin := api.Group("/admin", r.authMiddleware.AdminAuthenticate())
	admin.Post("/stocks", r.stockHandler.Create)
	admin.Patch("/stocks/:id", r.stockHandler.Update)
	admin.Post("/stocks/archive-expired", r.stockHandler.ArchiveExpired)

	admin.Get("/orders/:id", r.orderHandler.Get)
	admin.Post("/orders/:id/confirm", r.orderHandler.Confirm)
	admin.Post("/orders/:id/cancel", r.orderHandler.Cancel)
	admin.Post("/orders/:id/issue", r.orderHandler.Issue)
	admin.Patch("/orders/:id/quantity", r.orderHandler.EditQuantity)

	admin.Get("/phones/status", r.phoneHandler.Status)
	admin.Post("/phones/block", r.phoneHandler.Block)
	admin.Delete("/phones/block", r.phoneHandler.Unblock)
	admin.Post("/phones/trust", r.phoneHandler.Trust)
	admin.Delete("/phones/trust", r.phoneHandler.RevokeTrust)

	admin.Post("/promotions", r.promotionHandler.Create)
	admin.Get("/promotions", r.promotionHandler.ListAll)
	admin.Delete("/promotions/:id", r.promotionHandler.Deactivate)

	admin.Post("/admins", r.adminHandler.Add)
	admin.Get("/admins", r.adminHandler.List)
	admin.Delete("/admins/:userID", r.adminHandler.Remove)

	if r.serverCfg.EnableMetrics {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	r.app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(
			dto.ErrorResponse("ROUTE_NOT_FOUND", "The requested route does not exist", nil))
	})
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))
	r.app.Use(recover.New())
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	if r.serverCfg.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}
}

// Start begins listening for requests
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// Shutdown gracefully stops the server
func (r *FiberRouter) Shutdown() error {
	return r.app.Shutdown()
}

// GetApp returns the underlying Fiber app, used by tests
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse("Service is healthy", fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"service":   "brooder-api",
	}))
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(
		dto.ErrorResponse("REQUEST_FAILED", err.Error(), nil))
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
