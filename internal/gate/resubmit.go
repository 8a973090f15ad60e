package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// #region resubmitter
// Resubmitter drains the spool into the sheet with exponential backoff.
// Each batch keeps the submission timestamp it was stamped with originally.
type Resubmitter struct {
	gate   *Gate
	spool  *Spool
	config ResubmitConfig
}

// NewResubmitter pairs a gate with the spool it fills.
func NewResubmitter(g *Gate, sp *Spool, cfg ResubmitConfig) *Resubmitter {
	return &Resubmitter{gate: g, spool: sp, config: cfg}
}

// #endregion resubmitter

// #region drain
// Drain attempts every spooled batch once (with retries) and reports counts.
// A batch that still fails stays in the spool with its attempt count raised.
func (r *Resubmitter) Drain(ctx context.Context) (DrainSummary, error) {
	pending, err := r.spool.List(ctx)
	if err != nil {
		return DrainSummary{}, err
	}
	summary := DrainSummary{Pending: len(pending)}

	// Spool bookkeeping ignores cancellation of ctx.
	keep := context.WithoutCancel(ctx)

	for _, p := range pending {
		log := r.gate.logger.With(zap.String("spool_id", p.ID), zap.String("participant", p.Participant))

		tries := 0
		op := func() (bool, error) {
			tries++
			return r.gate.write(ctx, p.Participant, p.SubmittedAt, p.Records)
		}
		_, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(r.newBackOff()),
			backoff.WithMaxTries(r.config.MaxTries),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Warn("resubmit attempt failed", zap.Error(err), zap.Duration("next", next))
			}),
		)
		if err != nil {
			summary.Failed++
			log.Error("resubmit gave up", zap.Int("tries", tries), zap.Error(err))
			if mErr := r.spool.MarkAttempt(keep, p.ID, tries, err); mErr != nil {
				return summary, mErr
			}
			if ctx.Err() != nil {
				return summary, fmt.Errorf("drain: %w", ctx.Err())
			}
			continue
		}

		if err := r.spool.Delete(keep, p.ID); err != nil {
			return summary, err
		}
		summary.Resubmitted++
		log.Info("resubmitted", zap.Int("tries", tries), zap.Int("records", len(p.Records)))
	}
	return summary, nil
}

func (r *Resubmitter) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.config.InitialInterval > 0 {
		b.InitialInterval = r.config.InitialInterval
	}
	if r.config.MaxInterval > 0 {
		b.MaxInterval = r.config.MaxInterval
	}
	return b
}

// #endregion drain
