package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// CalloutTarget is one entry of the staff callout roster. The target is
// called out once the event reaches MinAlertLevel.
type CalloutTarget struct {
	Name          string                   `json:"name" toml:"name"`
	Contact       string                   `json:"contact" toml:"contact" masq:"secret"`
	Method        types.NotificationMethod `json:"method" toml:"method"`
	MinAlertLevel types.AlertLevel         `json:"min_alert_level" toml:"min_alert_level"`
}

// ReachedBy reports whether an event at level calls out the target
func (t CalloutTarget) ReachedBy(level types.AlertLevel) bool {
	return t.MinAlertLevel.Rank() <= level.Rank()
}

// Validate checks the roster entry
func (t CalloutTarget) Validate() error {
	if t.Name == "" {
		return goerr.Wrap(ErrValidation, "callout name is required")
	}
	if t.Contact == "" {
		return goerr.Wrap(ErrValidation, "callout contact is required", goerr.V("name", t.Name))
	}
	if !t.Method.IsValid() {
		return goerr.Wrap(ErrValidation, "invalid callout method", goerr.V("name", t.Name), goerr.V("method", t.Method))
	}
	if !t.MinAlertLevel.IsValid() {
		return goerr.Wrap(ErrValidation, "invalid callout alert level", goerr.V("name", t.Name), goerr.V("level", t.MinAlertLevel))
	}
	return nil
}
