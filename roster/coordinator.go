/*
coordinator.go - Atomic execution with bounded retry

PURPOSE:
  Every capacity-affecting operation runs through here: one atomic,
  isolated transaction spanning counters, registrant record(s), team record
  and notification(s). Partial application is never observable.

RETRY DISCIPLINE:
  A version-checked write losing to a concurrent commit surfaces as
  ErrConcurrentModification. The coordinator replays the whole closure -
  which re-reads everything it decides on - a bounded number of times with
  a short linear backoff, then surfaces ErrCapacityConflict so the caller
  can decide to try again. Validation and staleness errors pass through on
  the first attempt; retrying caller misuse cannot help.
*/
package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds how often a conflicting operation is replayed
// before being surfaced as transient.
const DefaultMaxAttempts = 3

// Coordinator wraps a TxStore with conflict retry.
type Coordinator struct {
	store       TxStore
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

func NewCoordinator(store TxStore, maxAttempts int, log zerolog.Logger) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Coordinator{
		store:       store,
		maxAttempts: maxAttempts,
		backoff:     10 * time.Millisecond,
		log:         log,
	}
}

// Execute runs fn inside a transaction, replaying on detected write
// conflicts. op names the operation for logging only.
func (c *Coordinator) Execute(ctx context.Context, op string, fn func(Store) error) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.store.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		c.log.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Err(err).
			Msg("transaction conflict, retrying")

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}

	c.log.Error().Str("op", op).Int("attempts", c.maxAttempts).Msg("retries exhausted")
	return fmt.Errorf("%s: %w after %d attempts", op, ErrCapacityConflict, c.maxAttempts)
}
