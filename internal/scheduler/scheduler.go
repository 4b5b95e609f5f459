package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AgentTreasury/internal/model"
	"AgentTreasury/internal/notifier"
	"AgentTreasury/internal/recorder"
)

// Source is the treasury read surface the jobs need.
type Source interface {
	Snapshot() model.State
	SharePrice() decimal.Decimal
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Flusher persists the current state.
type Flusher interface {
	Flush() error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Source   Source
	Recorder recorder.Recorder
	// Notifier and State are optional.
	Notifier Sender
	State    Flusher
	Ctx      context.Context

	log *zap.Logger
	now func() time.Time
}

// NewScheduler creates a new Scheduler using six-field cron specs.
func NewScheduler(ctx context.Context, src Source, rec recorder.Recorder, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Source:   src,
		Recorder: rec,
		Ctx:      ctx,
		log:      log.Named("scheduler"),
		now:      time.Now,
	}
}

// RegisterAll registers the snapshot and daily summary tasks. An empty spec
// disables the task.
func (s *Scheduler) RegisterAll(snapshotCron, dailyCron string) error {
	if snapshotCron != "" {
		if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
			return fmt.Errorf("register snapshot task: %w", err)
		}
	}
	if dailyCron != "" {
		if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
			return fmt.Errorf("register daily task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunSnapshotNow executes the snapshot task immediately.
func (s *Scheduler) RunSnapshotNow() {
	s.snapshotTask()
}

// RunDailyNow executes the daily summary task immediately.
func (s *Scheduler) RunDailyNow() {
	s.dailyTask()
}

func (s *Scheduler) snapshotTask() {
	st := s.Source.Snapshot()
	price := s.Source.SharePrice()

	if err := s.Recorder.RecordSnapshot(recorder.Snapshot{
		TotalShares: st.TotalShares,
		TotalAssets: st.TotalAssets,
		SharePrice:  price,
		Investors:   len(st.Investors),
		Agents:      len(st.Agents),
		Stopped:     st.EmergencyStop,
	}); err != nil {
		s.log.Error("record snapshot", zap.Error(err))
	}
	if s.State != nil {
		if err := s.State.Flush(); err != nil {
			s.log.Error("persist state", zap.Error(err))
		}
	}
	s.log.Info("snapshot taken",
		zap.Uint64("seq", st.Seq),
		zap.String("total_assets", st.TotalAssets.String()),
		zap.String("share_price", price.String()))
}

func (s *Scheduler) dailyTask() {
	s.log.Info("running daily summary")
	recent, err := s.Recorder.Recent(1000)
	if err != nil {
		s.log.Error("load recent events", zap.Error(err))
	}
	report := notifier.FormatDailySummary(s.Source.Snapshot(), s.Source.SharePrice(), recent, s.now())
	s.trySend(report)
}

func (s *Scheduler) trySend(msg string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, msg, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
