package model

// WarningCode identifies a degraded-success condition
type WarningCode string

const (
	WarningActivityLogFailed    WarningCode = "ACTIVITY_LOG_FAILED"
	WarningResourceShortfall    WarningCode = "RESOURCE_SHORTFALL"
	WarningNotificationFailed   WarningCode = "NOTIFICATION_FAILED"
	WarningIdentityLookupFailed WarningCode = "IDENTITY_LOOKUP_FAILED"
	WarningReleaseFailed        WarningCode = "RELEASE_FAILED"
	WarningStreamPublishFailed  WarningCode = "STREAM_PUBLISH_FAILED"
)

// Warning is returned next to a committed state change when a secondary
// step failed. It never turns the change into an error.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// Warnings accumulates warnings in order
type Warnings []Warning

// Add appends a warning built from err
func (w *Warnings) Add(code WarningCode, err error) {
	*w = append(*w, Warning{Code: code, Message: err.Error()})
}

// Merge appends all warnings in other
func (w *Warnings) Merge(other Warnings) {
	*w = append(*w, other...)
}

// Has reports whether a warning with code is present
func (w Warnings) Has(code WarningCode) bool {
	for _, v := range w {
		if v.Code == code {
			return true
		}
	}
	return false
}
