package kbsearch

import (
	"context"

	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
)

// HealthStatus reports the document store and the view counter store.
// Status is "ok", "degraded" (counters down, search still serves) or "error".
type HealthStatus struct {
	Status    string
	Documents bool
	Counters  bool
}

// Searchable reports whether Search can return results. A counter outage
// only drops the popularity tie-break.
func (h HealthStatus) Searchable() bool { return h.Documents }

// Health pings both stores.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	return HealthStatus{
		Status:    string(report.Status),
		Documents: report.Checks[healthuc.ComponentDocuments] == healthuc.CheckOK,
		Counters:  report.Checks[healthuc.ComponentCounters] == healthuc.CheckOK,
	}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
