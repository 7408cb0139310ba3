package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"surveyhub-backend/shared/httpx"
)

// ServiceChecks calls GET /health on every service.
func ServiceChecks(services map[string]string, client *http.Client) map[string]httpx.Check {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	checks := make(map[string]httpx.Check, len(services))
	for name, base := range services {
		url := strings.TrimRight(base, "/") + "/health"
		checks[name] = func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s health returned %d", name, resp.StatusCode)
			}
			return nil
		}
	}
	return checks
}
