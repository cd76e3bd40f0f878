// pkg/chaos/experiments.go
package chaos

import (
	"context"
	"database/sql"
	"time"
)

// RegisterDefaults registers the platform's standing experiment suite.
func (e *Engine) RegisterDefaults() {
	e.Register(e.DatabaseLatencyExperiment(250 * time.Millisecond))
	e.Register(e.ConcurrentAcceptRaceExperiment())
	e.Register(e.RatingAggregateConsistencyExperiment())
	e.Register(e.ConnectionPoolExhaustionExperiment())
}

// DatabaseLatencyExperiment injects latency into database operations and
// watches the swap transition success rate.
func (e *Engine) DatabaseLatencyExperiment(targetLatency time.Duration) Experiment {
	return Experiment{
		Name:       "database-latency-injection",
		Hypothesis: "Swap transitions degrade gracefully when database latency rises",
		SteadyState: []Metric{
			{
				Name: "transition_success_rate",
				Query: func(ctx context.Context) (float64, error) {
					var rate float64
					err := e.db.QueryRowContext(ctx, `
						SELECT COALESCE(
							COUNT(*) FILTER (WHERE event_type = 'SwapTransitioned')::float
							/ NULLIF(COUNT(*)::float, 0) * 100,
							100.0
						) FROM events
						WHERE aggregate_type = 'swap' AND created_at > NOW() - INTERVAL '1 minute'
					`).Scan(&rate)
					return rate, err
				},
				Threshold: Threshold{Operator: ">=", Value: 0.0},
			},
			{
				Name:      "swap_read_model_consistency",
				Query:     e.swapConsistencyQuery,
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "inject-latency",
				Target: "postgres-primary",
				Execute: func(ctx context.Context) error {
					// injected by the network proxy in front of postgres
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "remove-latency",
				Target: "postgres-primary",
				Execute: func(ctx context.Context) error {
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "swap_read_model_consistency",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Slow writes must not desynchronize the read model from the journal",
			},
		},
		Duration:    2 * time.Minute,
		BlastRadius: 1.0,
	}
}

// ConcurrentAcceptRaceExperiment fires competing accepts at the same
// pending swap and checks that exactly one lands.
func (e *Engine) ConcurrentAcceptRaceExperiment() Experiment {
	return Experiment{
		Name:       "concurrent-accept-race",
		Hypothesis: "Competing accepts on one pending swap produce exactly one accepted transition",
		SteadyState: []Metric{
			{
				Name: "duplicate_accepts",
				Query: func(ctx context.Context) (float64, error) {
					var duplicates int
					err := e.db.QueryRowContext(ctx, `
						SELECT COUNT(*) FROM (
							SELECT aggregate_id FROM events
							WHERE aggregate_type = 'swap'
							AND event_type = 'SwapTransitioned'
							AND event_data->>'to' = 'accepted'
							GROUP BY aggregate_id
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
				Target: "swap-service",
				Execute: func(ctx context.Context) error {
					// the load generator replays PATCH /swaps/{id}/accept
					// from both participants at once
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "duplicate_accepts",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No swap may record two accepted transitions",
			},
		},
		Duration:    30 * time.Second,
		BlastRadius: 0.1,
	}
}

// RatingAggregateConsistencyExperiment checks that every profile's
// rating aggregate matches its rating rows while raters hammer the
// system.
func (e *Engine) RatingAggregateConsistencyExperiment() Experiment {
	return Experiment{
		Name:       "rating-aggregate-consistency",
		Hypothesis: "Concurrent ratings never desynchronize profile aggregates from rating rows",
		SteadyState: []Metric{
			{
				Name: "aggregate_drift",
				Query: func(ctx context.Context) (float64, error) {
					var drift int
					err := e.db.QueryRowContext(ctx, `
						SELECT COUNT(*) FROM profiles p
						WHERE p.rating_count <> (
							SELECT COUNT(*) FROM ratings r WHERE r.rated_user_id = p.id
						)
					`).Scan(&drift)
					return float64(drift), err
				},
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "concurrent-ratings",
				Target: "swap-service",
				Execute: func(ctx context.Context) error {
					// the load generator submits ratings for freshly
					// completed swaps across many raters
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "aggregate_drift",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "rating_count must equal the number of rating rows for every profile",
			},
		},
		Duration:    time.Minute,
		BlastRadius: 0.2,
	}
}

// ConnectionPoolExhaustionExperiment holds connections open and checks
// the services shed load instead of cascading.
func (e *Engine) ConnectionPoolExhaustionExperiment() Experiment {
	return Experiment{
		Name:       "database-connection-pool-exhaustion",
		Hypothesis: "Services fail requests fast instead of cascading when the pool is exhausted",
		SteadyState: []Metric{
			{
				Name:      "swap_read_model_consistency",
				Query:     e.swapConsistencyQuery,
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "exhaust-connections",
				Target: "postgres-connection-pool",
				Execute: func(ctx context.Context) error {
					conns := make([]*sql.Conn, 0, 100)
					for i := 0; i < 100; i++ {
						conn, err := e.db.Conn(ctx)
						if err != nil {
							break
						}
						conns = append(conns, conn)
					}
					time.Sleep(30 * time.Second)
					for _, conn := range conns {
						conn.Close()
					}
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "swap_read_model_consistency",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Starved writes must not leave partial state behind",
			},
		},
		Duration:    2 * time.Minute,
		BlastRadius: 1.0,
	}
}

// swapConsistencyQuery counts swaps whose read-model version disagrees
// with the newest journal entry.
func (e *Engine) swapConsistencyQuery(ctx context.Context) (float64, error) {
	var inconsistencies int
	err := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM swaps s
		WHERE s.version <> (
			SELECT COALESCE(MAX(ev.version), 0) FROM events ev
			WHERE ev.aggregate_id = s.id AND ev.aggregate_type = 'swap'
		)
	`).Scan(&inconsistencies)
	return float64(inconsistencies), err
}
