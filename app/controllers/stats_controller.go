package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrackFox/internal/pkg/jobqueue"
)

// OutcomeSnapshot reads the webhook outcome counters.
type OutcomeSnapshot interface {
	Snapshot(ctx context.Context) (map[string]map[string]int64, error)
}

type StatsController struct {
	outcomes OutcomeSnapshot
	manager  *jobqueue.Manager
}

// NewStatsController reports counters and, when the Redis driver runs, the
// queue depth. manager may be nil.
func NewStatsController(outcomes OutcomeSnapshot, manager *jobqueue.Manager) *StatsController {
	return &StatsController{outcomes: outcomes, manager: manager}
}

func (sc *StatsController) HandleStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	webhooks, err := sc.outcomes.Snapshot(ctx)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "counters_unavailable"})
	}
	response := fiber.Map{"webhooks": webhooks}

	if sc.manager != nil {
		response["sweeper_running"] = sc.manager.IsRunning()
		if q := sc.manager.GetQueue(); q != nil {
			pending, _ := q.GetQueueSize(ctx)
			processing, _ := q.GetProcessingSize(ctx)
			jobs, _ := q.GetJobStats(ctx)
			response["queue"] = fiber.Map{
				"pending":    pending,
				"processing": processing,
				"jobs":       jobs,
			}
		}
	}
	return c.JSON(response)
}
