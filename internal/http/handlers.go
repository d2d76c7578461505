package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

// HistoryReader is the read side of the history repository.
type HistoryReader interface {
	ListSamples(ctx context.Context, since time.Time, limit int) ([]domain.OverviewSample, error)
	ListModeChanges(ctx context.Context, limit int) ([]domain.ModeChange, error)
}

func Register(app *fiber.App, repo HistoryReader) {
	g := app.Group("/")
	g.Get("samples", func(c *fiber.Ctx) error {
		var since time.Time
		if raw := c.Query("since"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "since must be RFC3339"})
			}
			since = t
		}
		limit, err := queryLimit(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		items, err := repo.ListSamples(c.UserContext(), since, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(nonNil(items))
	})
	g.Get("mode-changes", func(c *fiber.Ctx) error {
		limit, err := queryLimit(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		items, err := repo.ListModeChanges(c.UserContext(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(nonNil(items))
	})
}

func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
