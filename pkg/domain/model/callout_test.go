package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

func TestCalloutTarget_ReachedBy(t *testing.T) {
	target := model.CalloutTarget{
		Name:          "surgery on-call",
		Contact:       "C0123",
		Method:        types.NotificationMethodSlack,
		MinAlertLevel: types.AlertLevelOrange,
	}
	gt.NoError(t, target.Validate())
	gt.Bool(t, target.ReachedBy(types.AlertLevelYellow)).False()
	gt.Bool(t, target.ReachedBy(types.AlertLevelOrange)).True()
	gt.Bool(t, target.ReachedBy(types.AlertLevelRed)).True()
}

func TestCalloutTarget_Validate(t *testing.T) {
	valid := model.CalloutTarget{Name: "a", Contact: "b", Method: types.NotificationMethodSMS, MinAlertLevel: types.AlertLevelGreen}

	noContact := valid
	noContact.Contact = ""
	gt.Error(t, noContact.Validate()).Is(model.ErrValidation)

	badMethod := valid
	badMethod.Method = "PIGEON"
	gt.Error(t, badMethod.Validate()).Is(model.ErrValidation)

	badLevel := valid
	badLevel.MinAlertLevel = "PURPLE"
	gt.Error(t, badLevel.Validate()).Is(model.ErrValidation)
}
