package middleware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/pkg/analytics"
)

// referrerSource reduces a Referer header to a source label for the traffic
// attribution counters. Empty or unparseable referrers count as direct.
func referrerSource(referer string) string {
	if referer == "" {
		return "direct"
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return "direct"
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// TrackViewMiddleware counts GET page views in Redis. Webhooks and health
// probes are not page views.
func TrackViewMiddleware(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodGet && !strings.HasPrefix(c.Path(), "/webhooks") && c.Path() != "/health" {
		analytics.TrackView(c.Context(), referrerSource(c.Get("Referer")))
	}
	return c.Next()
}
