package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/snapsplit/snapsplit-backend/internal/config"
	"github.com/snapsplit/snapsplit-backend/internal/handlers"
	"github.com/snapsplit/snapsplit-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	receiptHandler *handlers.ReceiptHandler,
	claimHandler *handlers.ClaimHandler,
	migrationHandler *handlers.MigrationHandler,
	webhookHandler *handlers.WebhookHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Receipt operations accept either a verified identity or a guest device
	// id; the optional middleware resolves whichever is present.
	receipts := api.Group("/receipts", middleware.OptionalIdentity(cfg))
	receipts.Post("/", receiptHandler.Create)
	receipts.Get("/recent", receiptHandler.ListRecent)
	receipts.Get("/:code", receiptHandler.Get)
	receipts.Delete("/:client_receipt_id", receiptHandler.Archive)
	receipts.Post("/:code/join", claimHandler.Join)
	receipts.Get("/:code/live", claimHandler.Live)
	receipts.Post("/:code/claims", claimHandler.UpdateClaim)
	receipts.Post("/:code/payment", claimHandler.DeclarePayment)
	receipts.Post("/:code/payment/confirm", claimHandler.ConfirmPayment)

	// Migration and billing require a verified identity.
	api.Post("/migrate", middleware.JWTProtected(cfg), migrationHandler.Migrate)
	api.Get("/billing/usage", middleware.JWTProtected(cfg), migrationHandler.Usage)

	// Webhooks: shared-token auth, no JWT.
	webhooks := api.Group("/webhooks")
	webhooks.Post("/revenuecat", webhookHandler.HandleRevenueCat)
}
