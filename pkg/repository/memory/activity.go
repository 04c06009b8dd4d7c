package memory

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

type activityRepository struct {
	mu      sync.RWMutex
	entries map[model.EventID][]*model.ActivityEntry
}

func newActivityRepository() *activityRepository {
	return &activityRepository{
		entries: make(map[model.EventID][]*model.ActivityEntry),
	}
}

func (r *activityRepository) Append(ctx context.Context, e *model.ActivityEntry) (*model.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.entries[e.EventID]
	appended := model.CopyActivityEntry(e)
	appended.Seq = int64(len(log)) + 1

	// Timestamps never go backwards within one event log.
	now := time.Now().UTC()
	if n := len(log); n > 0 && now.Before(log[n-1].Timestamp) {
		now = log[n-1].Timestamp
	}
	appended.Timestamp = now

	r.entries[e.EventID] = append(log, appended)
	return model.CopyActivityEntry(appended), nil
}

func (r *activityRepository) ListSince(ctx context.Context, eventID model.EventID, afterSeq int64) ([]*model.ActivityEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.entries[eventID]
	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(log)) {
		return []*model.ActivityEntry{}, nil
	}

	out := make([]*model.ActivityEntry, 0, int64(len(log))-afterSeq)
	for _, e := range log[afterSeq:] {
		out = append(out, model.CopyActivityEntry(e))
	}
	return out, nil
}

func (r *activityRepository) ListRecent(ctx context.Context, eventID model.EventID, limit int) ([]*model.ActivityEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.entries[eventID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}

	out := make([]*model.ActivityEntry, 0, limit)
	for i := len(log) - 1; i >= len(log)-limit; i-- {
		out = append(out, model.CopyActivityEntry(log[i]))
	}
	return out, nil
}
