package model

import "github.com/google/uuid"

// EventID is a UUID-based identifier for MCIEvent
type EventID string

// NewEventID generates a new UUID v4 EventID
func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// VictimID is a UUID-based identifier for Victim
type VictimID string

// NewVictimID generates a new UUID v4 VictimID
func NewVictimID() VictimID {
	return VictimID(uuid.New().String())
}

// ReservationID identifies a resource reservation token
type ReservationID string

// NewReservationID generates a new UUID v4 ReservationID
func NewReservationID() ReservationID {
	return ReservationID(uuid.New().String())
}

// NotificationID identifies a notification intent
type NotificationID string

// NewNotificationID generates a new UUID v4 NotificationID
func NewNotificationID() NotificationID {
	return NotificationID(uuid.New().String())
}

// AssignmentID identifies a command assignment
type AssignmentID string

// NewAssignmentID generates a new UUID v4 AssignmentID
func NewAssignmentID() AssignmentID {
	return AssignmentID(uuid.New().String())
}

// InquiryID identifies a family inquiry
type InquiryID string

// NewInquiryID generates a new UUID v4 InquiryID
func NewInquiryID() InquiryID {
	return InquiryID(uuid.New().String())
}
