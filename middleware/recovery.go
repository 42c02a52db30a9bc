package middleware

import (
	"runtime/debug"
	"sync"
	"time"

	"options_venue/utils"

	"github.com/sony/gobreaker"
)

var (
	circuitBreaker *gobreaker.CircuitBreaker
	once           sync.Once
)

func init() {
	once.Do(func() {
		circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "persistence-breaker",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				utils.Logger.Infow("Circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String())
			},
		})
	})
}

// WithCircuitBreaker guards best-effort persistence writes. Once the
// store starts failing the breaker opens and saves are skipped until
// it recovers; in-memory state stays authoritative either way.
func WithCircuitBreaker(fn func() error) error {
	_, err := circuitBreaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// RecoverCycle wraps one scheduled cycle of the feed or settlement
// loop so a panic in one cycle never stops subsequent runs.
func RecoverCycle(loop string, next func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			utils.Logger.Errorw("Panic recovered in scheduled loop",
				"loop", loop,
				"error", r,
				"stack", string(stack))
		}
	}()
	next()
}
