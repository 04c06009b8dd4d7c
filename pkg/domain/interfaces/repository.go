package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Event() EventRepository
	Victim() VictimRepository
	Activity() ActivityRepository
	Notification() NotificationRepository
	Command() CommandRepository
	Inquiry() InquiryRepository

	Close() error
}
