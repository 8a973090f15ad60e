package gate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/sheet"
)

// #region gate
// spoolTimeout bounds the fallback write once the caller's context is gone.
const spoolTimeout = 5 * time.Second

// Gate writes a finished session to the sheet in a single batch.
type Gate struct {
	sheet  sheet.Sheet
	spool  *Spool
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithSpool keeps batches that fail to submit for later resubmission.
func WithSpool(sp *Spool) Option {
	return func(g *Gate) { g.spool = sp }
}

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLogger attaches a zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// New creates a gate over sh.
func New(sh sheet.Sheet, opts ...Option) *Gate {
	g := &Gate{
		sheet:  sh,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// #endregion gate

// #region submit
// Submit stamps every record with one submission timestamp, ensures the header
// exists and appends all rows in presentation order. It never retries; a
// failure is reported in Result and, with a spool configured, the batch is kept.
// The spool write outlives cancellation of ctx.
func (g *Gate) Submit(ctx context.Context, participant string, records []record.Response) Result {
	stamp := g.now().Format(record.TimestampLayout)
	log := g.logger.With(
		zap.String("participant", participant),
		zap.String("submitted_at", stamp),
		zap.Int("records", len(records)),
	)

	res := Result{SubmittedAt: stamp, Rows: len(records)}
	headerWritten, err := g.write(ctx, participant, stamp, records)
	res.HeaderWritten = headerWritten
	if err == nil {
		res.OK = true
		log.Info("submission stored", zap.Bool("header_written", headerWritten))
		return res
	}

	res.Err = err
	log.Error("submission failed", zap.Error(err))

	if g.spool != nil {
		spoolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), spoolTimeout)
		defer cancel()
		id, spErr := g.spool.Put(spoolCtx, Pending{
			Participant: participant,
			SubmittedAt: stamp,
			Records:     records,
			LastError:   err.Error(),
		})
		if spErr != nil {
			log.Error("spool failed", zap.Error(spErr))
		} else {
			res.Spooled = true
			res.SpoolID = id
			log.Warn("submission spooled for resubmit", zap.String("spool_id", id))
		}
	}
	return res
}

func (g *Gate) write(ctx context.Context, participant, stamp string, records []record.Response) (bool, error) {
	headerWritten, err := g.sheet.AppendHeaderIfAbsent(ctx, record.Header)
	if err != nil {
		return false, fmt.Errorf("append header: %w", err)
	}
	if err := g.sheet.AppendRows(ctx, record.Rows(participant, stamp, records)); err != nil {
		return headerWritten, fmt.Errorf("append rows: %w", err)
	}
	return headerWritten, nil
}

// #endregion submit
