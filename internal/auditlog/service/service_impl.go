package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	auditlogdomain "github.com/stayware/callguard/internal/auditlog/domain"
	"github.com/stayware/callguard/internal/config"
)

type Params struct {
	fx.In

	LC     fx.Lifecycle `optional:"true"`
	Log    *zap.Logger
	Config config.Config
	Holder *config.AlertingConfigHolder
}

// Service appends one pipe-delimited line per pipeline stage to a plain file,
// one file per UTC day. The trail is a convenience for operators grepping a
// box, not a durability mechanism: write failures are logged and swallowed.
type Service struct {
	log    *zap.Logger
	dir    string
	holder *config.AlertingConfigHolder

	mu     sync.Mutex
	day    string
	file   *os.File
	closed bool
}

func NewService(p Params) auditlogdomain.Service {
	s := &Service{
		log:    p.Log.Named("auditlog.service"),
		dir:    p.Config.AuditDir,
		holder: p.Holder,
	}
	if p.LC != nil {
		p.LC.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return s.Close()
			},
		})
	}
	return s
}

func (s *Service) Record(_ context.Context, e auditlogdomain.Entry) {
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	line := strings.Join([]string{
		at.Format(s.holder.Get().AuditTimeLayout),
		sanitize(e.Stage),
		sanitize(e.EnterpriseID),
		sanitize(e.GroupID),
		sanitize(e.UserID),
		sanitize(e.Extension),
		sanitize(e.PhoneNumber),
		sanitize(e.Detail),
	}, "|")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.log.Warn("audit trail write after close", zap.String("stage", e.Stage))
		return
	}
	if err := s.rotateLocked(at); err != nil {
		s.log.Warn("failed to open audit trail file", zap.Error(err))
		return
	}
	if _, err := fmt.Fprintln(s.file, line); err != nil {
		s.log.Warn("failed to append audit trail", zap.String("stage", e.Stage), zap.Error(err))
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// rotateLocked opens the file for the entry's UTC day, closing the previous
// day's handle when the date rolls over. Caller holds s.mu.
func (s *Service) rotateLocked(at time.Time) error {
	day := at.UTC().Format("2006-01-02")
	if s.file != nil && s.day == day {
		return nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			s.log.Warn("failed to close previous audit trail file", zap.String("day", s.day), zap.Error(err))
		}
		s.file = nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, "calls-"+day+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	s.day = day
	return nil
}

// sanitize keeps the trail one-record-per-line by stripping the field
// delimiter and newlines from values before they are joined.
func sanitize(v string) string {
	v = strings.ReplaceAll(v, "|", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\r", " ")
	return strings.TrimSpace(v)
}
