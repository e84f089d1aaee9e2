package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the counter store is down; search still answers without popularity.
	Degraded Status = "degraded"
	// Unhealthy indicates the document store is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDocuments = "documents"
	ComponentCounters  = "counters"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	documents Pinger
	counters  Pinger
}

// New creates a Service. counters can be nil when views are disabled.
func New(documents, counters Pinger) *Service {
	return &Service{documents: documents, counters: counters}
}

// Check pings both stores. A document store failure is fatal; a counter store failure only degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	if s.counters != nil {
		if err := s.counters.Ping(ctx); err != nil {
			checks[ComponentCounters] = CheckError
			status = Degraded
		} else {
			checks[ComponentCounters] = CheckOK
		}
	}

	if err := s.documents.Ping(ctx); err != nil {
		checks[ComponentDocuments] = CheckError
		status = Unhealthy
	} else {
		checks[ComponentDocuments] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
