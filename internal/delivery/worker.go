package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/internal/cloudmetrics"
	notifyqdomain "github.com/stayware/callguard/internal/notifyq/domain"
	obsmetrics "github.com/stayware/callguard/internal/observability/metrics"
	"github.com/stayware/callguard/internal/providers/email"
)

var ErrInvalidConfig = errors.New("delivery: missing dependency")

const jobEmailDrain = "email_drain"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Queue   notifyqdomain.Repository
	Mail    email.Provider
	Metrics *obsmetrics.Metrics `optional:"true"`
	Config  Config              `optional:"true"`
}

// Worker drains the email queue on a fixed interval. Phone and SMS schedule
// rows are consumed by the on-site paging agent over HTTP, so the worker
// leaves those tables alone.
type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	queue   notifyqdomain.Repository
	mail    email.Provider
	metrics *obsmetrics.Metrics
}

func New(p Params) (*Worker, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Queue == nil || p.Mail == nil {
		return nil, ErrInvalidConfig
	}
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("delivery").With(zap.String("component", "delivery")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		queue:   p.Queue,
		mail:    p.Mail,
		metrics: p.Metrics,
	}, nil
}

func (w *Worker) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := w.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	workerMetrics := obsmetrics.Worker()
	workerMetrics.IncJobRun(name)

	err := fn(ctx)
	workerMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		workerMetrics.IncJobTimeout(name)
		w.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	workerMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (w *Worker) RunOnce(parent context.Context) error {
	return w.runJob(parent, jobEmailDrain, w.cfg.JobTimeout, w.DrainEmails)
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := w.clock.Now().Add(w.cfg.RunInterval)
	workerMetrics := obsmetrics.Worker()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			workerMetrics.ObserveRunLoopLag(lag)
		}
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("delivery run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(w.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DrainEmails claims and sends pending queue rows until the queue is empty
// or the job deadline hits. A failed send returns the row to pending with
// its attempt counter bumped; the next run retries it.
func (w *Worker) DrainEmails(ctx context.Context) error {
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		items, err := w.queue.FetchEmailsForWork(ctx, w.db, w.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(items) == 0 {
			return jobErr
		}

		for _, item := range items {
			if err := w.deliver(ctx, item); err != nil {
				jobErr = errors.Join(jobErr, err)
			}
		}
		obsmetrics.Worker().AddBatchProcessed(jobEmailDrain, "email_queue", len(items))

		if len(items) < w.cfg.BatchSize {
			return jobErr
		}
	}
}

func (w *Worker) deliver(ctx context.Context, item notifyqdomain.EmailQueueItem) error {
	log := w.log.With(
		zap.String("email_id", item.ID.String()),
		zap.String("property_id", item.PropertyID.String()),
		zap.String("alert_id", item.AlertID.String()),
	)

	if err := w.mail.Send(ctx, item.ToAddress, item.Subject, item.Body); err != nil {
		w.metrics.RecordEmailDelivery(ctx, "failed")
		cloudmetrics.RecordEmailDelivery("failed")
		log.Warn("email send failed",
			zap.Int("attempts", item.Attempts+1),
			zap.Error(err),
		)
		if markErr := w.queue.MarkEmailFailed(ctx, w.db, item.ID, err.Error()); markErr != nil {
			return markErr
		}
		return nil
	}

	w.metrics.RecordEmailDelivery(ctx, "sent")
	cloudmetrics.RecordEmailDelivery("sent")
	if err := w.queue.MarkEmailSent(ctx, w.db, item.ID); err != nil {
		log.Warn("email sent but row not settled", zap.Error(err))
		return err
	}
	log.Info("alert email sent", zap.String("to", item.ToAddress))
	return nil
}
