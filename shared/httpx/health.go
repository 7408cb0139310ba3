package httpx

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"surveyhub-backend/shared/metrics"
)

// Check tests one dependency.
type Check func(ctx context.Context) error

// Health answers 200 {"status":"ok"} when every check passes and 503 with
// the failing dependencies otherwise.
func Health(service string, checks map[string]Check) gin.HandlerFunc {
	m := metrics.NewMetrics()
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		deps := gin.H{}
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				healthy = false
				deps[name] = "down"
				m.SetDependencyUp(name, false)
				continue
			}
			deps[name] = "up"
			m.SetDependencyUp(name, true)
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "unavailable",
				"service":      service,
				"dependencies": deps,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"service":      service,
			"dependencies": deps,
		})
	}
}
