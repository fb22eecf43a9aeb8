package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
)

const sweepTimeout = time.Minute

// Reaper periodically removes expired verification codes and pending
// registrations so abandoned signups stop reserving usernames and emails.
type Reaper struct {
	cron     *cron.Cron
	pendings port.PendingRegistrationRepository
	codes    port.VerificationCodeRepository
	logger   *zap.Logger
	schedule string
	clock    func() time.Time
}

// NewReaper constructs a reaper driven by the configured cron schedule.
func NewReaper(
	cfg config.ReaperSettings,
	pendings port.PendingRegistrationRepository,
	codes port.VerificationCodeRepository,
	logger *zap.Logger,
) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reaper{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		pendings: pendings,
		codes:    codes,
		logger:   logger,
		schedule: cfg.Schedule,
		clock:    time.Now,
	}
}

// WithClock overrides the time source used to compute the expiry cutoff.
func (r *Reaper) WithClock(clock func() time.Time) *Reaper {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// Start registers the sweep job and begins the cron loop.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.runSweep); err != nil {
		return fmt.Errorf("register expiry sweep: %w", err)
	}

	r.cron.Start()
	r.logger.Info("expiry reaper started", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the cron loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("expiry reaper stopped")
}

func (r *Reaper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	r.Sweep(ctx)
}

// Sweep runs a single expiry pass. Codes are cleared before their parent
// registrations so a failure partway through never orphans a code row.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := r.clock().UTC()

	codesRemoved, err := r.codes.DeleteExpired(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to delete expired verification codes", zap.Error(err))
	}

	pendingsRemoved, err := r.pendings.DeleteExpired(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to delete expired pending registrations", zap.Error(err))
	}

	if codesRemoved > 0 || pendingsRemoved > 0 {
		r.logger.Info("expiry sweep complete",
			zap.Int64("codes_removed", codesRemoved),
			zap.Int64("pendings_removed", pendingsRemoved),
		)
	}
}
