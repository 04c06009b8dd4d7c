package types

import "fmt"

// NotificationType is the stage of contact with a recipient
type NotificationType string

const (
	NotificationInitial  NotificationType = "INITIAL"
	NotificationUpdate   NotificationType = "UPDATE"
	NotificationFollowUp NotificationType = "FOLLOW_UP"
)

// IsValid checks if the notification type is valid
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationInitial,
		NotificationUpdate,
		NotificationFollowUp:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notification type
func (t NotificationType) String() string {
	return string(t)
}

// ParseNotificationType parses a string into a NotificationType
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid notification type: %s", s)
	}
	return t, nil
}

// NotificationMethod is the delivery channel of a notification
type NotificationMethod string

const (
	NotificationMethodPhone NotificationMethod = "PHONE"
	NotificationMethodSMS   NotificationMethod = "SMS"
	NotificationMethodSlack NotificationMethod = "SLACK"
)

// IsValid checks if the notification method is valid
func (m NotificationMethod) IsValid() bool {
	switch m {
	case NotificationMethodPhone,
		NotificationMethodSMS,
		NotificationMethodSlack:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notification method
func (m NotificationMethod) String() string {
	return string(m)
}

// ParseNotificationMethod parses a string into a NotificationMethod
func ParseNotificationMethod(s string) (NotificationMethod, error) {
	m := NotificationMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid notification method: %s", s)
	}
	return m, nil
}

// NotificationStatus is the delivery state of a notification intent
type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "QUEUED"
	NotificationSent   NotificationStatus = "SENT"
	NotificationFailed NotificationStatus = "FAILED"
)

// IsValid checks if the notification status is valid
func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationQueued,
		NotificationSent,
		NotificationFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notification status
func (s NotificationStatus) String() string {
	return string(s)
}

// NotificationPurpose tells family contact apart from staff callout
type NotificationPurpose string

const (
	NotificationPurposeFamily       NotificationPurpose = "FAMILY"
	NotificationPurposeStaffCallout NotificationPurpose = "STAFF_CALLOUT"
)

// IsValid checks if the notification purpose is valid
func (p NotificationPurpose) IsValid() bool {
	return p == NotificationPurposeFamily || p == NotificationPurposeStaffCallout
}

// String returns the string representation of the notification purpose
func (p NotificationPurpose) String() string {
	return string(p)
}

// CalloutResponse is a staff member's answer to a callout
type CalloutResponse string

const (
	CalloutConfirmed CalloutResponse = "CONFIRMED"
	CalloutDeclined  CalloutResponse = "DECLINED"
)

// IsValid checks if the callout response is valid
func (r CalloutResponse) IsValid() bool {
	return r == CalloutConfirmed || r == CalloutDeclined
}

// String returns the string representation of the callout response
func (r CalloutResponse) String() string {
	return string(r)
}
