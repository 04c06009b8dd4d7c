package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// ActivityRepository is the append-only activity log. It has no update or delete.
type ActivityRepository interface {
	// Append assigns the next per-event Seq and stores the entry
	Append(ctx context.Context, e *model.ActivityEntry) (*model.ActivityEntry, error)

	// ListSince returns entries with Seq greater than afterSeq in ascending order
	ListSince(ctx context.Context, eventID model.EventID, afterSeq int64) ([]*model.ActivityEntry, error)

	// ListRecent returns at most limit entries, newest first
	ListRecent(ctx context.Context, eventID model.EventID, limit int) ([]*model.ActivityEntry, error)
}
