package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck pings one backing service
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthChecker struct {
	checks []HealthCheck
}

func NewHealthChecker(checks []HealthCheck) *HealthChecker {
	return &HealthChecker{
		checks: checks,
	}
}

// check runs every ping concurrently and returns the failures by name
func (h *HealthChecker) check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures = make(map[string]string)
	)

	for _, c := range h.checks {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Ping(ctx); err != nil {
				mu.Lock()
				failures[c.Name] = err.Error()
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return failures
}

func (h *HealthChecker) Handler(c *gin.Context) {
	failures := h.check(c.Request.Context())

	components := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		components[check.Name] = "pass"
		if _, failed := failures[check.Name]; failed {
			components[check.Name] = "fail"
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "fail",
			"components": components,
			"errors":     failures,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "pass",
		"components": components,
	})
}
