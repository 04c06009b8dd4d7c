package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/Songmu/retry"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/service/resource"
)

type UseCases struct {
	repo        interfaces.Repository
	ledger      *resource.Ledger
	capacity    interfaces.CapacityProvider
	identity    interfaces.IdentityLookup
	publisher   interfaces.ActivityPublisher
	callouts    []model.CalloutTarget
	areas       []string
	maxAttempts int
	trigger     func(ctx context.Context) error
	now         func() time.Time

	Activity     *ActivityUseCase
	Notification *NotificationUseCase
	Resource     *ResourceUseCase
	Victim       *VictimUseCase
	Command      *CommandUseCase
	Inquiry      *InquiryUseCase
	Coordinator  *CoordinatorUseCase
	Export       *ExportUseCase
}

type Option func(*UseCases)

// WithLedger shares a resource ledger. By default each UseCases owns a new one.
func WithLedger(ledger *resource.Ledger) Option {
	return func(uc *UseCases) {
		uc.ledger = ledger
	}
}

func WithCapacityProvider(p interfaces.CapacityProvider) Option {
	return func(uc *UseCases) {
		uc.capacity = p
	}
}

func WithIdentityLookup(l interfaces.IdentityLookup) Option {
	return func(uc *UseCases) {
		uc.identity = l
	}
}

func WithActivityPublisher(p interfaces.ActivityPublisher) Option {
	return func(uc *UseCases) {
		uc.publisher = p
	}
}

// WithCallouts sets the staff callout roster used on activation and escalation
func WithCallouts(targets []model.CalloutTarget) Option {
	return func(uc *UseCases) {
		uc.callouts = targets
	}
}

// WithAreas restricts area assignment to the given treatment areas
func WithAreas(areas []string) Option {
	return func(uc *UseCases) {
		uc.areas = areas
	}
}

// WithMaxAttempts sets how many delivery attempts a notification gets
func WithMaxAttempts(n int) Option {
	return func(uc *UseCases) {
		uc.maxAttempts = n
	}
}

// WithDeliveryTrigger sets a hook fired after callouts are queued so they do
// not wait for the next delivery poll.
func WithDeliveryTrigger(fn func(ctx context.Context) error) Option {
	return func(uc *UseCases) {
		uc.trigger = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

const defaultMaxAttempts = 3

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:        repo,
		maxAttempts: defaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.ledger == nil {
		uc.ledger = resource.NewLedger(resource.WithClock(uc.now))
	}

	uc.Activity = NewActivityUseCase(repo, uc.publisher)
	uc.Notification = NewNotificationUseCase(repo, uc.Activity, uc.maxAttempts, uc.now)
	uc.Resource = NewResourceUseCase(repo, uc.ledger, uc.Activity)
	uc.Victim = NewVictimUseCase(repo, uc.ledger, uc.Activity, uc.Notification, uc.identity, uc.areas, uc.now)
	uc.Command = NewCommandUseCase(repo, uc.Activity, uc.now)
	uc.Inquiry = NewInquiryUseCase(repo, uc.Activity, uc.now)
	uc.Coordinator = NewCoordinatorUseCase(repo, uc.ledger, uc.Activity, uc.Notification, uc.capacity, uc.callouts, uc.trigger, uc.now)
	uc.Export = NewExportUseCase(repo, uc.now)

	return uc
}

// Ledger returns the resource ledger shared by the use cases
func (uc *UseCases) Ledger() *resource.Ledger {
	return uc.ledger
}

func getEvent(ctx context.Context, repo interfaces.Repository, id model.EventID) (*model.Event, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrValidation, "event ID is required")
	}
	e, err := repo.Event().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get event", goerr.V(model.EventIDKey, id))
	}
	return e, nil
}

// getOpenEvent returns the event unless it is closed
func getOpenEvent(ctx context.Context, repo interfaces.Repository, id model.EventID) (*model.Event, error) {
	e, err := getEvent(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if e.IsClosed() {
		return nil, goerr.Wrap(model.ErrEventClosed, "event is closed", goerr.V(model.EventIDKey, id))
	}
	return e, nil
}

const (
	conflictRetries  = 3
	conflictInterval = 20 * time.Millisecond
)

// retryOnConflict re-runs fn while it fails with a version mismatch. Any
// other outcome is returned as is.
func retryOnConflict(fn func() error) error {
	var last error
	err := retry.Retry(conflictRetries, conflictInterval, func() error {
		last = fn()
		if errors.Is(last, model.ErrConcurrentModification) {
			return last
		}
		return nil
	})
	if err != nil {
		return err
	}
	return last
}

func requireActor(actor string) error {
	if actor == "" {
		return goerr.Wrap(model.ErrValidation, "actor is required")
	}
	return nil
}
