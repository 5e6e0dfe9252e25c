// chaos/experiments.go
package chaos

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"
)

// RegisterExperiments registers the predefined experiments with the engine.
func (e *Engine) RegisterExperiments() {
	e.RegisterExperiment(e.DatabaseLatencyExperiment(250 * time.Millisecond))
	e.RegisterExperiment(e.MembershipOutageExperiment())
	e.RegisterExperiment(e.ConcurrentRegistrationRaceTest())
	e.RegisterExperiment(e.PaymentCompensationExperiment())
}

// DatabaseLatencyExperiment injects latency into database operations and
// watches whether registrations keep resolving.
func (e *Engine) DatabaseLatencyExperiment(targetLatency time.Duration) Experiment {
	return Experiment{
		Name:       "database-latency-injection",
		Hypothesis: "Attendance registration degrades gracefully when database latency exceeds threshold",
		SteadyState: []Metric{
			{
				Name: "registration_success_rate",
				Query: func(ctx context.Context) (float64, error) {
					var successRate float64
					err := e.db.QueryRowContext(ctx, `
						SELECT COALESCE(
							COUNT(*) FILTER (WHERE resolution <> '')::float / NULLIF(COUNT(*)::float, 0) * 100,
							100.0
						) FROM attendances WHERE created_at > NOW() - INTERVAL '1 minute'
					`).Scan(&successRate)
					return successRate, err
				},
				Threshold: Threshold{Operator: ">", Value: 99.0},
			},
		},
		Method: []Action{
			{
				Type:   "inject-latency",
				Target: "postgres-primary",
				Parameters: map[string]interface{}{
					"latency": targetLatency,
					"jitter":  50 * time.Millisecond,
				},
				Execute: func(ctx context.Context) error {
					// In production this goes through a toxiproxy in
					// front of Postgres.
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "remove-latency",
				Target: "postgres-primary",
				Execute: func(ctx context.Context) error { return nil },
			},
		},
		Validation: []Assertion{
			{
				Metric:    "registration_success_rate",
				Condition: func(v float64) bool { return v > 95.0 },
				Message:   "Registration success rate should remain above 95%",
			},
		},
		Duration:    5 * time.Minute,
		BlastRadius: 1.0,
	}
}

// MembershipOutageExperiment kills the membership service and checks that
// the attendance service's circuit breaker fails fast instead of hanging.
func (e *Engine) MembershipOutageExperiment() Experiment {
	return Experiment{
		Name:       "membership-service-outage",
		Hypothesis: "Attendance requests fail fast behind the circuit breaker while the membership service is down",
		SteadyState: []Metric{
			{
				Name: "attendance_error_rate",
				Query: func(ctx context.Context) (float64, error) {
					// Would query the gateway's metrics endpoint.
					return 0.0, nil
				},
				Threshold: Threshold{Operator: "<", Value: 1.0},
			},
		},
		Method: []Action{
			{
				Type:   "kill-pod",
				Target: "membership-service",
				Execute: func(ctx context.Context) error {
					// In production: kubectl delete pod membership-xyz
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "restore-pod",
				Target: "membership-service",
				Execute: func(ctx context.Context) error {
					// In production: kubectl scale deployment membership --replicas=1
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "attendance_error_rate",
				Condition: func(v float64) bool { return v < 100.0 },
				Message:   "Breaker should shed load rather than time out every request",
			},
		},
		Duration:    2 * time.Minute,
		BlastRadius: 0.5,
	}
}

// ConcurrentRegistrationRaceTest hammers one (member, course, date) slot
// with parallel registrations and verifies the uniqueness invariant holds.
func (e *Engine) ConcurrentRegistrationRaceTest() Experiment {
	return Experiment{
		Name:       "concurrent-registration-race",
		Hypothesis: "Parallel registrations for one session slot never leave duplicate live rows",
		SteadyState: []Metric{
			{
				Name: "duplicate_slots",
				Query: func(ctx context.Context) (float64, error) {
					var duplicates int
					err := e.db.QueryRowContext(ctx, `
						SELECT COUNT(*) FROM (
							SELECT member_id, course_id, date
							FROM attendances
							GROUP BY member_id, course_id, date
							HAVING COUNT(*) > 1
						) d
					`).Scan(&duplicates)
					return float64(duplicates), err
				},
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "concurrent-requests",
				Target: "attendance-service",
				Parameters: map[string]interface{}{
					"concurrency": 50,
					"slot":        "same-member-course-date",
				},
				Execute: func(ctx context.Context) error {
					body := []byte(`{
						"member_id": "11111111-1111-1111-1111-111111111111",
						"course_id": "22222222-2222-2222-2222-222222222222",
						"date": "2026-09-07"
					}`)

					var wg sync.WaitGroup
					for i := 0; i < 50; i++ {
						wg.Add(1)
						go func() {
							defer wg.Done()
							req, err := http.NewRequestWithContext(ctx, http.MethodPost,
								e.baseURL+"/api/v1/attendance", bytes.NewReader(body))
							if err != nil {
								return
							}
							req.Header.Set("Content-Type", "application/json")
							resp, err := http.DefaultClient.Do(req)
							if err != nil {
								return
							}
							resp.Body.Close()
						}()
					}
					wg.Wait()
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "duplicate_slots",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "At most one live attendance may exist per slot",
			},
		},
		Duration:    30 * time.Second,
		BlastRadius: 0.1,
	}
}

// PaymentCompensationExperiment checks the resolution saga: no payment may
// stay marked used without a paid attendance to show for it.
func (e *Engine) PaymentCompensationExperiment() Experiment {
	return Experiment{
		Name:       "payment-compensation",
		Hypothesis: "A failed resolution restores the consumed payment",
		SteadyState: []Metric{
			{
				Name: "orphaned_used_payments",
				Query: func(ctx context.Context) (float64, error) {
					var orphans int
					err := e.db.QueryRowContext(ctx, `
						SELECT COUNT(*) FROM payments p
						WHERE p.used
						  AND NOT EXISTS (
							SELECT 1 FROM attendances a
							WHERE a.member_id = p.member_id AND a.resolution = 'paid'
						  )
					`).Scan(&orphans)
					return float64(orphans), err
				},
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "inject-failure",
				Target: "attendance-service",
				Parameters: map[string]interface{}{
					"failure_point": "after-payment-consumed",
				},
				Execute: func(ctx context.Context) error {
					// Requires a failpoint build of the attendance
					// service; a no-op against a stock binary.
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:    "remove-failure",
				Target:  "attendance-service",
				Execute: func(ctx context.Context) error { return nil },
			},
		},
		Validation: []Assertion{
			{
				Metric:    "orphaned_used_payments",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Every used payment must map to a paid attendance",
			},
		},
		Duration:    1 * time.Minute,
		BlastRadius: 0.2,
	}
}
