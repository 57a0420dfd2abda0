// Package directory writes to the external directories without holding up
// gameplay. Every write runs in its own goroutine under a timeout, and
// failures are logged and counted, never returned.
package directory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/storage"
)

// Recorder performs fire-and-forget directory writes
type Recorder struct {
	dirs     storage.Directories
	timeout  time.Duration
	hashCost int
	metrics  *metrics.Metrics
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewRecorder creates a Recorder writing to dirs
func NewRecorder(dirs storage.Directories, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{
		dirs:     dirs,
		timeout:  timeout,
		hashCost: bcrypt.DefaultCost,
		metrics:  m,
		logger:   logger.With(slog.String("component", "directory")),
	}
}

// SetHashCost overrides the bcrypt cost; tests use bcrypt.MinCost
func (r *Recorder) SetHashCost(cost int) {
	r.hashCost = cost
}

// EnsureUser resolves name to a user id and hands it to onResolved
func (r *Recorder) EnsureUser(name string, onResolved func(model.UserID)) {
	r.goWrite("get_or_create_user", func(ctx context.Context) error {
		id, err := r.dirs.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if onResolved != nil {
			onResolved(id)
		}
		return nil
	})
}

// RecordLobby stores a lobby record. A non-empty credential is bcrypt
// hashed here; the plain value never reaches the directory.
func (r *Recorder) RecordLobby(rec model.LobbyRecord, credential string) {
	r.goWrite("record_lobby", func(ctx context.Context) error {
		if rec.HostID == "" && rec.HostName != "" {
			id, err := r.dirs.GetOrCreate(ctx, rec.HostName)
			if err != nil {
				return err
			}
			rec.HostID = id
		}
		if credential != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(credential), r.hashCost)
			if err != nil {
				return err
			}
			rec.CredentialHash = string(hash)
		}
		return r.dirs.Record(ctx, rec)
	})
}

// RecordMatch appends a finished match to match history
func (r *Recorder) RecordMatch(rec model.MatchRecord) {
	r.goWrite("record_match", func(ctx context.Context) error {
		return r.dirs.RecordResult(ctx, rec)
	})
}

// Wait blocks until every in-flight write has finished
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) goWrite(op string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.metrics.DirectoryErrors.WithLabelValues(op).Inc()
			r.logger.Warn("directory write failed",
				slog.String("op", op),
				slog.Any("error", err))
		}
	}()
}
