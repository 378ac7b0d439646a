package services

import (
	"context"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
)

// connectorVersion is reported on the operations status surface.
const connectorVersion = "1.2.0"

const (
	connectorName        = "giftcard-connector"
	connectorDescription = "Gift card payment connector"
)

// Status aggregates connectivity probes into one operations report. The
// whole report is UP only when every probe is.
func (s *RedemptionService) Status(ctx context.Context) *application.StatusResult {
	checks := []application.HealthCheck{
		s.checkCommerce(ctx),
		s.checkUpstream(ctx),
	}

	status := "UP"
	for _, c := range checks {
		if c.Status != "UP" {
			status = "DOWN"
			break
		}
	}

	return &application.StatusResult{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   connectorVersion,
		Metadata: application.StatusMetadata{
			Name:        connectorName,
			Description: connectorDescription,
			Currency:    s.currency,
		},
		Checks: checks,
	}
}

func (s *RedemptionService) checkCommerce(ctx context.Context) application.HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()

	if err := s.commerce.Ping(ctx); err != nil {
		s.logger.Warn("commerce health probe failed", "error", err)
		return application.HealthCheck{
			Name:    "commerce",
			Status:  "DOWN",
			Message: err.Error(),
		}
	}
	return application.HealthCheck{Name: "commerce", Status: "UP"}
}

func (s *RedemptionService) checkUpstream(ctx context.Context) application.HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()

	result := s.upstream.Healthcheck(ctx)
	check := application.HealthCheck{
		Name:    "issuer",
		Status:  result.Status,
		Details: result.Details,
	}
	if result.Status != "UP" {
		s.logger.Warn("issuer health probe reported down", "details", result.Details)
	}
	return check
}
