package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/repository/memory"
	"github.com/secmon-lab/asclepius/pkg/service/hospital"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

const testActor = "dr.kato"

var defaultCapacity = model.CapacitySnapshot{
	types.ResourceBed:           {Total: 10, Available: 10},
	types.ResourceICUBed:        {Total: 5, Available: 5},
	types.ResourceOperatingRoom: {Total: 2, Available: 2},
}

func newUseCases(t *testing.T, opts ...usecase.Option) (*usecase.UseCases, *memory.Memory) {
	t.Helper()
	repo := memory.New()
	opts = append([]usecase.Option{usecase.WithCapacityProvider(hospital.NewStaticCapacity(defaultCapacity))}, opts...)
	return usecase.New(repo, opts...), repo
}

func activate(t *testing.T, uc *usecase.UseCases, level types.AlertLevel) *model.Event {
	t.Helper()
	res, err := uc.Coordinator.Activate(context.Background(), usecase.ActivateInput{
		AlertLevel:          level,
		EventType:           types.EventTypeTransport,
		Name:                "Highway pile-up",
		Location:            "Route 4, exit 12",
		EstimatedCasualties: 20,
		Actor:               testActor,
	})
	gt.NoError(t, err).Required()
	return res.Event
}

func delayedAnswers() *model.TriageInput {
	return &model.TriageInput{START: &model.STARTAnswers{
		Ambulatory:      false,
		Breathing:       true,
		RadialPulse:     true,
		FollowsCommands: true,
	}}
}

func register(t *testing.T, uc *usecase.UseCases, eventID model.EventID, triage *model.TriageInput) *model.Victim {
	t.Helper()
	res, err := uc.Victim.Register(context.Background(), eventID, usecase.RegisterInput{Triage: triage}, testActor)
	gt.NoError(t, err).Required()
	return res.Victim
}

type fakeCapacity struct {
	err error
}

func (f fakeCapacity) Snapshot(ctx context.Context) (model.CapacitySnapshot, error) {
	return nil, f.err
}

type fakeIdentity struct {
	identity *model.Identity
	err      error
}

func (f fakeIdentity) Lookup(ctx context.Context, scanID string) (*model.Identity, error) {
	return f.identity, f.err
}

type fakePublisher struct {
	mu      sync.Mutex
	entries []*model.ActivityEntry
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, e *model.ActivityEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.entries = append(p.entries, e)
	return nil
}

// brokenActivityRepo fails every append while the rest of the memory
// repository keeps working
type brokenActivityRepo struct {
	*memory.Memory
}

func (r brokenActivityRepo) Activity() interfaces.ActivityRepository {
	return brokenActivity{r.Memory.Activity()}
}

type brokenActivity struct {
	interfaces.ActivityRepository
}

func (brokenActivity) Append(ctx context.Context, e *model.ActivityEntry) (*model.ActivityEntry, error) {
	return nil, errors.New("activity store unavailable")
}

func listActivity(t *testing.T, uc *usecase.UseCases, eventID model.EventID) []*model.ActivityEntry {
	t.Helper()
	entries, err := uc.Activity.ListSince(context.Background(), eventID, 0)
	gt.NoError(t, err).Required()
	return entries
}

// pausingRepo holds the next victim update or notification modify, once
// armed, until release is closed
type pausingRepo struct {
	*memory.Memory
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newPausingRepo() *pausingRepo {
	return &pausingRepo{
		Memory:  memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *pausingRepo) arm() {
	r.armed.Store(true)
}

func (r *pausingRepo) hold() {
	if r.armed.CompareAndSwap(true, false) {
		close(r.entered)
		<-r.release
	}
}

func (r *pausingRepo) Victim() interfaces.VictimRepository {
	return pausingVictims{VictimRepository: r.Memory.Victim(), repo: r}
}

func (r *pausingRepo) Notification() interfaces.NotificationRepository {
	return pausingNotifications{NotificationRepository: r.Memory.Notification(), repo: r}
}

type pausingVictims struct {
	interfaces.VictimRepository
	repo *pausingRepo
}

func (v pausingVictims) Update(ctx context.Context, victim *model.Victim, expectedVersion int64) (*model.Victim, error) {
	v.repo.hold()
	return v.VictimRepository.Update(ctx, victim, expectedVersion)
}

type pausingNotifications struct {
	interfaces.NotificationRepository
	repo *pausingRepo
}

func (n pausingNotifications) Modify(ctx context.Context, id model.NotificationID, fn func(n *model.NotificationIntent) error) (*model.NotificationIntent, error) {
	n.repo.hold()
	return n.NotificationRepository.Modify(ctx, id, fn)
}

func newPausingUseCases(t *testing.T) (*usecase.UseCases, *pausingRepo) {
	t.Helper()
	repo := newPausingRepo()
	return usecase.New(repo, usecase.WithCapacityProvider(hospital.NewStaticCapacity(defaultCapacity))), repo
}
