package usecase

import "errors"

// errUnchanged aborts a notification modification that would not change anything
var errUnchanged = errors.New("unchanged")

// Context keys for error values
const (
	ActorKey       = "actor"
	RoleKey        = "role"
	DispositionKey = "disposition"
	AlertLevelKey  = "alert_level"
	AreaKey        = "area"
)
