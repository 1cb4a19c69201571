package providers

import (
	"context"
	"log/slog"
	"time"
)

// StartHealthChecker starts a background goroutine that periodically checks
// the provider's health and updates its status.
//
// The checker runs until the provider is closed or the context is cancelled,
// and backs off when the backend is unhealthy to reduce load on it.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context) {
	p.healthCheckerStarted = true
	go p.runHealthChecker(ctx)
}

// runHealthChecker is the main health checking loop.
func (p *HTTPProvider) runHealthChecker(ctx context.Context) {
	defer close(p.healthCheckStopped)

	interval := p.config.HealthCheckInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("health checker started",
		"provider", p.config.Name,
		"interval", interval,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("health checker stopped (context cancelled)", "provider", p.config.Name)
			return

		case <-p.stopHealthCheck:
			slog.Debug("health checker stopped (provider closed)", "provider", p.config.Name)
			return

		case <-ticker.C:
			p.performHealthCheck(ctx)

			if !p.IsHealthy() {
				health := p.GetHealth()
				backoffInterval := calculateBackoff(health.ConsecutiveFailures, interval)
				ticker.Reset(backoffInterval)

				slog.Debug("health check backoff",
					"provider", p.config.Name,
					"consecutive_failures", health.ConsecutiveFailures,
					"next_check_in", backoffInterval,
				)
			} else {
				ticker.Reset(interval)
			}
		}
	}
}

// performHealthCheck executes a single health check.
func (p *HTTPProvider) performHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := p.healthCheckImpl(checkCtx)
	latency := time.Since(start)

	if err != nil {
		p.updateHealth(false, err)
		slog.Error("health check failed",
			"provider", p.config.Name,
			"error", err,
			"latency", latency,
		)
		return
	}

	// Log recovery before updateHealth clears the failure counter.
	health := p.GetHealth()
	p.updateHealth(true, nil)
	slog.Debug("health check passed",
		"provider", p.config.Name,
		"latency", latency,
	)
	if health.ConsecutiveFailures > 0 {
		slog.Info("embedding provider recovered",
			"provider", p.config.Name,
			"previous_failures", health.ConsecutiveFailures,
		)
	}
}

// healthCheckImpl performs the actual check: a GET against the base URL to
// verify the backend is reachable. Adapters with a cheaper dedicated
// endpoint may override HealthCheck instead.
func (p *HTTPProvider) healthCheckImpl(ctx context.Context) error {
	headers := make(map[string]string)
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}

	resp, err := p.DoRequest(ctx, "GET", p.config.BaseURL, nil, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

// calculateBackoff calculates the check interval after consecutive failures,
// doubling per failure with a cap of 10x the base interval and 5 minutes.
func calculateBackoff(consecutiveFailures int, baseInterval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return baseInterval
	}

	multiplier := 1 << uint(consecutiveFailures)
	if multiplier > 10 {
		multiplier = 10
	}

	backoff := baseInterval * time.Duration(multiplier)

	maxBackoff := 5 * time.Minute
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return backoff
}

// HealthCheck performs a synchronous on-demand health check.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	return p.healthCheckImpl(ctx)
}
