package memory

import (
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// ErrNotFound is returned when an entity does not exist
var ErrNotFound = model.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	event        *eventRepository
	victim       *victimRepository
	activity     *activityRepository
	notification *notificationRepository
	command      *commandRepository
	inquiry      *inquiryRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	event := newEventRepository()
	return &Memory{
		event:        event,
		victim:       newVictimRepository(event),
		activity:     newActivityRepository(),
		notification: newNotificationRepository(event),
		command:      newCommandRepository(),
		inquiry:      newInquiryRepository(),
	}
}

func (m *Memory) Event() interfaces.EventRepository {
	return m.event
}

func (m *Memory) Victim() interfaces.VictimRepository {
	return m.victim
}

func (m *Memory) Activity() interfaces.ActivityRepository {
	return m.activity
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}

func (m *Memory) Command() interfaces.CommandRepository {
	return m.command
}

func (m *Memory) Inquiry() interfaces.InquiryRepository {
	return m.inquiry
}

func (m *Memory) Close() error {
	return nil
}
