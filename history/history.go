// Package history keeps a capped list of finished page actions in Redis.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"xhsmcp/queue"
)

const (
	DefaultLimit = 50

	// recordTimeout bounds one write made from the queue observer.
	recordTimeout = 2 * time.Second
	ioTimeout     = 2 * time.Second
)

// Episode is one finished action.
type Episode struct {
	JobID      string         `json:"job_id"`
	Action     string         `json:"action"`
	Status     string         `json:"status"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

// EpisodeFromJob converts a finished queue job.
func EpisodeFromJob(job queue.Job) Episode {
	ts := job.CreatedAt
	if job.CompletedAt != nil {
		ts = *job.CompletedAt
	}
	return Episode{
		JobID:      job.ID,
		Action:     job.Action,
		Status:     job.Status,
		Success:    job.Status == queue.StatusCompleted,
		Error:      job.Error,
		Params:     job.Params,
		DurationMs: job.DurationMs,
		Timestamp:  ts,
	}
}

// Manager stores episodes newest first under one list key.
type Manager struct {
	client     *redis.Client
	key        string
	maxEntries int64
	logger     *slog.Logger

	recordTimeout time.Duration
}

func NewManager(client *redis.Client, key string, maxEntries int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return &Manager{
		client:     client,
		key:        key,
		maxEntries: int64(maxEntries),
		logger:     logger.With("component", "history"),

		recordTimeout: recordTimeout,
	}
}

// NewClient returns a client with short network timeouts that honours
// context deadlines.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:                  addr,
		DialTimeout:           ioTimeout,
		ReadTimeout:           ioTimeout,
		WriteTimeout:          ioTimeout,
		ContextTimeoutEnabled: true,
	})
}

// Connect opens a client and checks that Redis answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := NewClient(addr)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Record prepends ep and trims the list to the configured size.
func (m *Manager) Record(ctx context.Context, ep Episode) error {
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("error marshalling episode: %w", err)
	}
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, m.key, data)
		pipe.LTrim(ctx, m.key, 0, m.maxEntries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving episode: %w", err)
	}
	return nil
}

// Recent returns up to limit episodes, newest first.
func (m *Manager) Recent(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	raw, err := m.client.LRange(ctx, m.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("error loading history: %w", err)
	}
	episodes := make([]Episode, 0, len(raw))
	for _, r := range raw {
		var ep Episode
		if err := json.Unmarshal([]byte(r), &ep); err != nil {
			m.logger.Warn("skipping unreadable episode", "err", err)
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

// JobFinished records the job within recordTimeout. Failures are logged.
func (m *Manager) JobFinished(ctx context.Context, job queue.Job) {
	ctx, cancel := context.WithTimeout(ctx, m.recordTimeout)
	defer cancel()
	if err := m.Record(ctx, EpisodeFromJob(job)); err != nil {
		m.logger.Warn("recording episode failed", "job_id", job.ID, "err", err)
	}
}
