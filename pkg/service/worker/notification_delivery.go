package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// Dispatcher is the part of the notification use case the worker drives
type Dispatcher interface {
	ListPending(ctx context.Context, limit int) ([]*model.NotificationIntent, error)
	MarkSent(ctx context.Context, id model.NotificationID, actor string) (*model.NotificationIntent, model.Warnings, error)
	MarkFailed(ctx context.Context, id model.NotificationID, reason, actor string) (*model.NotificationIntent, model.Warnings, error)
}

// workerActor is recorded as the actor of delivery callbacks
const workerActor = "system:notification-worker"

// NotificationDeliveryWorker polls queued and retryable notification intents
// and hands each one to the sender registered for its method.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - An intent is delivered at least once; senders must tolerate duplicates
type NotificationDeliveryWorker struct {
	dispatcher  Dispatcher
	senders     map[types.NotificationMethod]interfaces.NotificationSender
	interval    time.Duration
	batchSize   int
	sendTimeout time.Duration
	kickCh      chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewNotificationDeliveryWorker creates a worker delivering through senders
func NewNotificationDeliveryWorker(dispatcher Dispatcher, interval time.Duration, batchSize int, senders ...interfaces.NotificationSender) *NotificationDeliveryWorker {
	w := &NotificationDeliveryWorker{
		dispatcher:  dispatcher,
		senders:     make(map[types.NotificationMethod]interfaces.NotificationSender),
		interval:    interval,
		batchSize:   batchSize,
		sendTimeout: 10 * time.Second,
		kickCh:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, s := range senders {
		w.senders[s.Method()] = s
	}
	return w
}

// Start begins the background delivery loop without blocking
func (w *NotificationDeliveryWorker) Start(ctx context.Context) error {
	logging.Default().Info("Notification delivery worker starting",
		"interval", w.interval.String(),
		"batch_size", w.batchSize)

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *NotificationDeliveryWorker) Stop() {
	logging.Default().Info("Notification delivery worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Notification delivery worker stopped")
}

// Kick requests a delivery cycle without waiting for the next tick.
// Kicks arriving while one is already pending are merged.
func (w *NotificationDeliveryWorker) Kick(ctx context.Context) error {
	select {
	case w.kickCh <- struct{}{}:
	default:
	}
	return nil
}

func (w *NotificationDeliveryWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cycle(ctx)

		case <-w.kickCh:
			w.cycle(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Notification delivery worker context cancelled")
			return
		}
	}
}

func (w *NotificationDeliveryWorker) cycle(ctx context.Context) {
	if _, err := w.DeliverPending(ctx); err != nil {
		logging.Default().Error("Notification delivery failed (will retry next interval)",
			"error", err.Error())
	}
}

// DeliverPending runs one delivery cycle and returns how many intents were sent
func (w *NotificationDeliveryWorker) DeliverPending(ctx context.Context) (int, error) {
	pending, err := w.dispatcher.ListPending(ctx, w.batchSize)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list pending notifications")
	}

	sent := 0
	for _, n := range pending {
		if err := w.deliver(ctx, n); err != nil {
			logging.Default().Warn("Notification delivery attempt failed",
				"notification_id", n.ID,
				"method", n.Method,
				"attempts", n.Attempts+1,
				"error", err.Error())

			if _, _, markErr := w.dispatcher.MarkFailed(ctx, n.ID, err.Error(), workerActor); markErr != nil {
				logging.Default().Error("Failed to record notification failure",
					"notification_id", n.ID,
					"error", markErr.Error())
			}
			continue
		}

		_, warnings, err := w.dispatcher.MarkSent(ctx, n.ID, workerActor)
		if err != nil {
			logging.Default().Error("Failed to record notification delivery",
				"notification_id", n.ID,
				"error", err.Error())
			continue
		}
		for _, warn := range warnings {
			logging.Default().Warn("Notification delivered with warning",
				"notification_id", n.ID,
				"code", warn.Code,
				"message", warn.Message)
		}
		sent++
	}

	return sent, nil
}

func (w *NotificationDeliveryWorker) deliver(ctx context.Context, n *model.NotificationIntent) error {
	sender, ok := w.senders[n.Method]
	if !ok {
		return goerr.New("no sender for notification method", goerr.V("method", n.Method))
	}

	ctx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	return sender.Send(ctx, n)
}
