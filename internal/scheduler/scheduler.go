// Package scheduler runs the periodic idle-session sweep: sessions with
// no activity past the TTL are archived so the next prompt on the same
// key starts a fresh agent conversation.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/bedrockchat/internal/state"
	"github.com/user/bedrockchat/internal/types"
)

// OnArchive is called for each session the sweep archives, letting the
// caller drop any live in-memory state tied to it.
type OnArchive func(id types.SessionID)

// Sweeper archives idle sessions on a cron schedule.
type Sweeper struct {
	sessions  *state.SessionStore
	idleTTL   time.Duration
	schedule  string
	onArchive OnArchive
	cron      *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Sweeper that runs on the given cron schedule and archives
// active sessions idle for longer than idleTTL. onArchive may be nil.
func New(sessions *state.SessionStore, schedule string, idleTTL time.Duration, onArchive OnArchive) *Sweeper {
	return &Sweeper{
		sessions:  sessions,
		idleTTL:   idleTTL,
		schedule:  schedule,
		onArchive: onArchive,
		cron:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the sweep as a cron entry and starts the ticker.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			slog.Error("idle session sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("scheduled idle session sweep", "schedule", s.schedule, "idle_ttl", s.idleTTL)
	return nil
}

// Stop stops the cron ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep archives every active session whose last update is older than
// the idle TTL. Also callable directly, outside the cron schedule.
func (s *Sweeper) Sweep(ctx context.Context) error {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-s.idleTTL)
	for _, sess := range sessions {
		if sess.Status != state.StatusActive || !sess.UpdatedAt.Before(cutoff) {
			continue
		}

		sess.Status = state.StatusArchived
		if err := s.sessions.Update(ctx, sess); err != nil {
			slog.Error("archive idle session failed", "session_id", sess.SessionID, "error", err)
			continue
		}
		slog.Info("archived idle session", "session_id", sess.SessionID, "session_key", sess.SessionKey)
		if s.onArchive != nil {
			s.onArchive(sess.SessionID)
		}
	}
	return nil
}
