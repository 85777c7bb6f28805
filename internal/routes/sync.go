package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/holdergate/holdergate/internal/synchronizer"
)

// RegisterSyncRoutes wires the manual sweep trigger. Manual sweeps bypass
// the scheduled-run overlap guard; the per-user locks inside the
// synchronizer are what keep concurrent runs safe.
func RegisterSyncRoutes(r fiber.Router, sync *synchronizer.Synchronizer, logger *slog.Logger) {
	r.Post("/sync", func(c *fiber.Ctx) error {
		go func() {
			if err := sync.Sweep(context.Background()); err != nil {
				logger.Error("manual sweep failed", "error", err)
			}
		}()
		return c.Status(http.StatusAccepted).JSON(fiber.Map{
			"status":    "sweep started",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
