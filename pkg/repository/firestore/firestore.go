package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = model.ErrNotFound

type Firestore struct {
	client       *firestore.Client
	event        *eventRepository
	victim       *victimRepository
	activity     *activityRepository
	notification *notificationRepository
	command      *commandRepository
	inquiry      *inquiryRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, e.g. for isolated tests
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.event.collectionPrefix = prefix
		f.victim.collectionPrefix = prefix
		f.activity.collectionPrefix = prefix
		f.notification.collectionPrefix = prefix
		f.command.collectionPrefix = prefix
		f.inquiry.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:       client,
		event:        &eventRepository{client: client},
		victim:       &victimRepository{client: client},
		activity:     &activityRepository{client: client},
		notification: &notificationRepository{client: client},
		command:      &commandRepository{client: client},
		inquiry:      &inquiryRepository{client: client},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Event() interfaces.EventRepository {
	return f.event
}

func (f *Firestore) Victim() interfaces.VictimRepository {
	return f.victim
}

func (f *Firestore) Activity() interfaces.ActivityRepository {
	return f.activity
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

func (f *Firestore) Command() interfaces.CommandRepository {
	return f.command
}

func (f *Firestore) Inquiry() interfaces.InquiryRepository {
	return f.inquiry
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
