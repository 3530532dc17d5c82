// Package scheduler re-checks the login state on a cron schedule so an
// expired session shows up in logs and history before a request hits it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"xhsmcp/xiaohongshu"
)

const probeTimeout = 2 * time.Minute

// ProbeFunc checks the login state. In the server it goes through the page
// queue like any other action.
type ProbeFunc func(ctx context.Context) (*xiaohongshu.LoginStatus, error)

// Snapshot is the outcome of the last probe.
type Snapshot struct {
	CheckedAt  time.Time `json:"checked_at"`
	IsLoggedIn bool      `json:"is_logged_in"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
}

type LoginProbe struct {
	cron   *cron.Cron
	probe  ProbeFunc
	logger *slog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

// NewLoginProbe accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as "@every 30m".
func NewLoginProbe(spec string, probe ProbeFunc, logger *slog.Logger) (*LoginProbe, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	p := &LoginProbe{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		probe:  probe,
		logger: logger.With("component", "scheduler"),
	}
	if _, err := p.cron.AddFunc(spec, func() { p.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid login probe schedule %q: %w", spec, err)
	}
	return p, nil
}

func (p *LoginProbe) Start() {
	p.cron.Start()
	p.logger.Info("login probe scheduled", "entries", len(p.cron.Entries()))
}

// Stop prevents further runs and waits for a probe in progress.
func (p *LoginProbe) Stop() {
	<-p.cron.Stop().Done()
}

// RunOnce probes immediately and stores the result.
func (p *LoginProbe) RunOnce(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	snap := Snapshot{CheckedAt: time.Now()}
	status, err := p.probe(ctx)
	switch {
	case err != nil:
		snap.Error = err.Error()
		p.logger.Warn("login probe failed", "err", err)
	case status != nil:
		snap.IsLoggedIn = status.IsLoggedIn
		snap.Message = status.Message
		if status.IsLoggedIn {
			p.logger.Info("login probe", "logged_in", true)
		} else {
			p.logger.Warn("login probe: session not logged in", "message", status.Message)
		}
	}

	p.mu.Lock()
	p.last = &snap
	p.mu.Unlock()
	return snap
}

// Last returns the most recent probe, if any ran.
func (p *LoginProbe) Last() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Snapshot{}, false
	}
	return *p.last, true
}
