package cloudmetrics

import (
	"context"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	"github.com/stayware/callguard/internal/config"
)

const pushInterval = 60 * time.Second

var registerOnce sync.Once

// Register wires fleet accounting for hosted installs. When no pusher is
// configured the package recorder stays a no-op and nothing runs.
func Register(lc fx.Lifecycle, cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger, db *gorm.DB) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pusher == nil {
		return
	}

	registerOnce.Do(func() {
		account := accountLabel(cfg)
		m := newMetrics(registry)
		setRecorder(&recorder{
			metrics:        m,
			defaultAccount: account,
		})

		loop := &pushLoop{
			account:  account,
			metrics:  m,
			registry: registry,
			pusher:   pusher,
			logger:   logger.Named("cloudmetrics"),
			db:       db,
		}

		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info("starting cloud metrics push loop",
					zap.String("account", account),
					zap.Duration("interval", pushInterval),
				)
				go loop.run(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				if closer, ok := pusher.(io.Closer); ok {
					return closer.Close()
				}
				return nil
			},
		})
	})
}

func accountLabel(cfg config.Config) string {
	account := strings.TrimSpace(cfg.Cloud.AccountID)
	if account == "" {
		return "unknown"
	}
	return account
}

type pushLoop struct {
	account  string
	metrics  *metrics
	registry *prometheus.Registry
	pusher   Pusher
	logger   *zap.Logger
	db       *gorm.DB

	failing atomic.Bool
}

func (l *pushLoop) run(ctx context.Context) {
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	l.pushOnce(ctx)
	for {
		select {
		case <-ticker.C:
			l.pushOnce(ctx)
		case <-ctx.Done():
			l.logger.Info("stopping cloud metrics push loop")
			return
		}
	}
}

func (l *pushLoop) pushOnce(ctx context.Context) {
	l.updateSystemMetrics()
	l.updateInstallGauges(ctx)

	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := l.pusher.Push(pushCtx, l.registry); err != nil {
		// Warn once per failure streak so a dead backend does not flood logs.
		if l.failing.CompareAndSwap(false, true) {
			l.logger.Warn("cloud metrics push failed", zap.Error(err))
		}
		return
	}
	l.failing.Store(false)
}

func (l *pushLoop) updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	l.metrics.setMemorySysBytes(l.account, m.Sys)
}

func (l *pushLoop) updateInstallGauges(ctx context.Context) {
	if l.db == nil {
		return
	}

	var open int64
	if err := l.db.WithContext(ctx).
		Table("alert_records").
		Where("ack_state = ?", alertdomain.AckStatePending).
		Count(&open).Error; err == nil {
		l.metrics.setOpenAlerts(l.account, open)
	}

	var properties int64
	if err := l.db.WithContext(ctx).
		Table("properties").
		Count(&properties).Error; err == nil {
		l.metrics.setPropertiesTotal(l.account, properties)
	}
}
