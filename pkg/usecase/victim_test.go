package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent registrations get distinct temp IDs", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelRed)

		const n = 30
		var wg sync.WaitGroup
		ids := make([]string, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{}, testActor)
				if err != nil {
					t.Errorf("register failed: %v", err)
					return
				}
				ids[i] = res.Victim.TempID
			}(i)
		}
		wg.Wait()

		seen := make(map[string]bool, n)
		for _, id := range ids {
			gt.Bool(t, seen[id]).False()
			seen[id] = true
		}
		gt.Number(t, len(seen)).Equal(n)

		victims, err := uc.Victim.List(ctx, e.ID, model.VictimFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, victims).Length(n)
	})

	t.Run("START answers classify on registration", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelYellow)

		v := register(t, uc, e.ID, delayedAnswers())
		gt.Value(t, v.Status).Equal(types.WorkflowTriaged)
		gt.Value(t, v.Category()).Equal(types.TriageDelayed)
		gt.Value(t, v.Triage.Color).Equal(types.TriageColorYellow)
		gt.Value(t, v.AreaID).Equal(types.TriageDelayed.DefaultArea())
		gt.Value(t, v.TagCode).Equal(model.FormatTagCode(types.TriageColorYellow, v.Seq))
		gt.Value(t, v.TempID).Equal(model.FormatTempID(e.Code, 1))
	})

	t.Run("untriaged registration", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelYellow)

		v := register(t, uc, e.ID, nil)
		gt.Value(t, v.Status).Equal(types.WorkflowRegistered)
		gt.Value(t, v.Triage).Nil()
		gt.Value(t, v.Version).Equal(int64(1))
	})

	t.Run("mismatched manual color is rejected", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelYellow)

		_, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Triage: &model.TriageInput{Category: types.TriageMinor, Color: types.TriageColorRed},
		}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("no live event", func(t *testing.T) {
		uc, _ := newUseCases(t)
		_, err := uc.Victim.Register(ctx, "missing", usecase.RegisterInput{}, testActor)
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("identity lookup fills blanks", func(t *testing.T) {
		uc, _ := newUseCases(t, usecase.WithIdentityLookup(fakeIdentity{identity: &model.Identity{
			PatientRef: "MRN-0042",
			FullName:   "Hanako Suzuki",
			Gender:     "F",
		}}))
		e := activate(t, uc, types.AlertLevelYellow)

		res, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{ScanID: "card-123", Gender: "female"},
		}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.PatientRef).Equal("MRN-0042")
		gt.Value(t, res.Victim.FullName).Equal("Hanako Suzuki")
		gt.Value(t, res.Victim.Gender).Equal("female")
		gt.Array(t, res.Warnings).Length(0)
	})

	t.Run("identity lookup failure is a warning", func(t *testing.T) {
		uc, _ := newUseCases(t, usecase.WithIdentityLookup(fakeIdentity{err: errors.New("registry timeout")}))
		e := activate(t, uc, types.AlertLevelYellow)

		res, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{ScanID: "card-123"},
		}, testActor)
		gt.NoError(t, err).Required()
		gt.Bool(t, res.Warnings.Has(model.WarningIdentityLookupFailed)).True()
		gt.Value(t, res.Victim.PatientRef).Equal("")
	})

	t.Run("family contact queues a notification", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelYellow)

		res, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{
				FullName:      "Taro Yamada",
				FamilyContact: &model.FamilyContact{Name: "Keiko Yamada", Relationship: "spouse", Phone: "+81-90-1111-2222"},
			},
		}, testActor)
		gt.NoError(t, err).Required()

		intents, err := uc.Notification.ListByVictim(ctx, res.Victim.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, intents).Length(1).Required()
		gt.Value(t, intents[0].Type).Equal(types.NotificationInitial)
		gt.Value(t, intents[0].Purpose).Equal(types.NotificationPurposeFamily)
		gt.Value(t, intents[0].Contact).Equal("+81-90-1111-2222")
		gt.String(t, intents[0].Message).Contains(res.Victim.TempID)

		// the queued intent is folded into the registration entry
		entries := listActivity(t, uc, e.ID)
		gt.Array(t, entries).Length(2).Required()
		gt.Value(t, entries[1].Details["notification_id"]).Equal(string(intents[0].ID))
	})

	t.Run("family contact needs a phone", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelYellow)

		_, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{FamilyContact: &model.FamilyContact{Name: "Keiko"}},
		}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestTriage(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCases(t)
	e := activate(t, uc, types.AlertLevelOrange)

	v := register(t, uc, e.ID, nil)

	res, err := uc.Victim.Triage(ctx, v.ID, v.Version, model.TriageInput{Category: types.TriageImmediate}, testActor)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Victim.Status).Equal(types.WorkflowTriaged)
	gt.Value(t, res.Victim.Version).Equal(v.Version + 1)
	gt.Value(t, res.Victim.AreaID).Equal(types.TriageImmediate.DefaultArea())
	tag := res.Victim.TagCode

	t.Run("only once", func(t *testing.T) {
		_, err := uc.Victim.Triage(ctx, v.ID, res.Victim.Version, model.TriageInput{Category: types.TriageMinor}, testActor)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		_, err := uc.Victim.Retriage(ctx, v.ID, v.Version, model.TriageInput{Category: types.TriageDelayed}, testActor, "improved")
		gt.Error(t, err).Is(model.ErrConcurrentModification)
	})

	t.Run("retriage keeps history in the log", func(t *testing.T) {
		_, err := uc.Victim.Retriage(ctx, v.ID, res.Victim.Version, model.TriageInput{Category: types.TriageDelayed}, testActor, "")
		gt.Error(t, err).Is(model.ErrValidation)

		_, err = uc.Victim.Retriage(ctx, v.ID, res.Victim.Version, model.TriageInput{Category: types.TriageImmediate}, testActor, "no change")
		gt.Error(t, err).Is(model.ErrValidation)

		rt, err := uc.Victim.Retriage(ctx, v.ID, res.Victim.Version, model.TriageInput{Category: types.TriageDelayed}, testActor, "airway secured")
		gt.NoError(t, err).Required()
		gt.Value(t, rt.Victim.Category()).Equal(types.TriageDelayed)
		gt.Value(t, rt.Victim.TagCode).Equal(model.FormatTagCode(types.TriageDelayed.Color(), v.Seq))
		gt.Value(t, rt.Victim.TagCode).NotEqual(tag)
		gt.String(t, rt.Victim.TagCode).HasPrefix("Y")

		entries := listActivity(t, uc, e.ID)
		last := entries[len(entries)-1]
		gt.Value(t, last.Type).Equal(types.ActivityTriage)
		gt.Value(t, last.Details["from"]).Equal(string(types.TriageImmediate))
		gt.Value(t, last.Details["to"]).Equal(string(types.TriageDelayed))
		gt.Value(t, last.Details["justification"]).Equal("airway secured")
		gt.Value(t, last.Details["from_tag"]).Equal(tag)
		gt.Value(t, last.Details["to_tag"]).Equal(rt.Victim.TagCode)
	})

	t.Run("retriage needs a prior triage", func(t *testing.T) {
		other := register(t, uc, e.ID, nil)
		_, err := uc.Victim.Retriage(ctx, other.ID, other.Version, model.TriageInput{Category: types.TriageMinor}, testActor, "walked in")
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})
}

func TestConcurrentVictimUpdates(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCases(t)
	e := activate(t, uc, types.AlertLevelOrange)
	v := register(t, uc, e.ID, delayedAnswers())

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Victim.AssignStaff(ctx, v.ID, v.Version, "staff-"+string(rune('a'+i)), testActor)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		gt.Error(t, err).Is(model.ErrConcurrentModification)
	}
	gt.Number(t, succeeded).Equal(1)

	got, err := uc.Victim.Get(ctx, v.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Version).Equal(v.Version + 1)
}

func TestWorkflow(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCases(t, usecase.WithAreas([]string{"red-zone", "yellow-zone", "green-zone"}))
	e := activate(t, uc, types.AlertLevelOrange)

	t.Run("treatment requires triage", func(t *testing.T) {
		v := register(t, uc, e.ID, nil)
		_, err := uc.Victim.BeginTreatment(ctx, v.ID, v.Version, testActor)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})

	t.Run("area assignment", func(t *testing.T) {
		v := register(t, uc, e.ID, delayedAnswers())

		_, err := uc.Victim.AssignArea(ctx, v.ID, v.Version, "parking-lot", testActor)
		gt.Error(t, err).Is(model.ErrValidation)

		res, err := uc.Victim.AssignArea(ctx, v.ID, v.Version, "red-zone", testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.AreaID).Equal("red-zone")

		again, err := uc.Victim.AssignArea(ctx, v.ID, res.Victim.Version, "red-zone", testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, again.Victim.Version).Equal(res.Victim.Version)
	})

	t.Run("vitals", func(t *testing.T) {
		v := register(t, uc, e.ID, delayedAnswers())

		_, err := uc.Victim.RecordVitals(ctx, v.ID, v.Version, model.VitalSigns{SpO2: 120}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)

		res, err := uc.Victim.RecordVitals(ctx, v.ID, v.Version, model.VitalSigns{RespiratoryRate: 24, PulseRate: 110, SpO2: 94, GCS: 14}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.Vitals.GCS).Equal(14)
		gt.Value(t, res.Victim.Vitals.RecordedBy).Equal(testActor)
	})

	t.Run("search", func(t *testing.T) {
		res, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{FullName: "Kenji Watanabe"},
		}, testActor)
		gt.NoError(t, err).Required()

		found, err := uc.Victim.Search(ctx, e.ID, "watanabe")
		gt.NoError(t, err).Required()
		gt.Array(t, found).Length(1).Required()
		gt.Value(t, found[0].ID).Equal(res.Victim.ID)

		found, err = uc.Victim.Search(ctx, e.ID, res.Victim.TempID)
		gt.NoError(t, err).Required()
		gt.Array(t, found).Length(1)

		_, err = uc.Victim.Search(ctx, e.ID, "  ")
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("list filter", func(t *testing.T) {
		triaged, err := uc.Victim.List(ctx, e.ID, model.VictimFilter{Category: types.TriageDelayed})
		gt.NoError(t, err).Required()
		for _, v := range triaged {
			gt.Value(t, v.Category()).Equal(types.TriageDelayed)
		}

		_, err = uc.Victim.List(ctx, e.ID, model.VictimFilter{Status: "LOST"})
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestSetDisposition(t *testing.T) {
	ctx := context.Background()

	t.Run("requires triage", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		v := register(t, uc, e.ID, nil)

		_, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionAdmitted, testActor)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})

	t.Run("reserves the matching resource", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		v := register(t, uc, e.ID, delayedAnswers())

		res, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionICU, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Reservation).NotNil().Required()
		gt.Value(t, res.Reservation.Category).Equal(types.ResourceICUBed)
		gt.Value(t, res.Victim.Status).Equal(types.WorkflowResolved)
		gt.Value(t, res.Victim.ReservationID).Equal(res.Reservation.ID)
		gt.Array(t, res.Warnings).Length(0)

		pool, err := uc.Ledger().Pool(e.ID, types.ResourceICUBed)
		gt.NoError(t, err).Required()
		gt.Value(t, pool.Snapshot().Reserved).Equal(1)
	})

	t.Run("repeating the call does not reserve twice", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		v := register(t, uc, e.ID, delayedAnswers())

		first, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionAdmitted, testActor)
		gt.NoError(t, err).Required()
		second, err := uc.Victim.SetDisposition(ctx, v.ID, first.Victim.Version, types.DispositionAdmitted, testActor)
		gt.NoError(t, err).Required()

		gt.Value(t, second.Victim.Version).Equal(first.Victim.Version)
		gt.Value(t, second.Reservation.ID).Equal(first.Reservation.ID)

		pool, err := uc.Ledger().Pool(e.ID, types.ResourceBed)
		gt.NoError(t, err).Required()
		gt.Value(t, pool.Snapshot().Reserved).Equal(1)
	})

	t.Run("shortfall still records the disposition", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)

		_, err := uc.Resource.Reserve(ctx, e.ID, types.ResourceOperatingRoom, 2, testActor)
		gt.NoError(t, err).Required()

		v := register(t, uc, e.ID, &model.TriageInput{Category: types.TriageImmediate})
		res, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionOR, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.Disposition).Equal(types.DispositionOR)
		gt.Value(t, res.Reservation).Nil()
		gt.Bool(t, res.Warnings.Has(model.WarningResourceShortfall)).True()

		entries := listActivity(t, uc, e.ID)
		last := entries[len(entries)-1]
		gt.Value(t, last.Details["shortfall"]).Equal(string(types.ResourceOperatingRoom))
	})

	t.Run("changing disposition releases the prior reservation", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		v := register(t, uc, e.ID, delayedAnswers())

		first, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionOR, testActor)
		gt.NoError(t, err).Required()
		second, err := uc.Victim.SetDisposition(ctx, v.ID, first.Victim.Version, types.DispositionICU, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, second.Victim.ReservationID).NotEqual(first.Victim.ReservationID)

		or, err := uc.Ledger().Pool(e.ID, types.ResourceOperatingRoom)
		gt.NoError(t, err).Required()
		gt.Value(t, or.Snapshot().Reserved).Equal(0)
		icu, err := uc.Ledger().Pool(e.ID, types.ResourceICUBed)
		gt.NoError(t, err).Required()
		gt.Value(t, icu.Snapshot().Reserved).Equal(1)
	})

	t.Run("racing identical dispositions keep the shared reservation", func(t *testing.T) {
		uc, repo := newPausingUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		v := register(t, uc, e.ID, delayedAnswers())

		repo.arm()
		firstErr := make(chan error, 1)
		go func() {
			_, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionICU, testActor)
			firstErr <- err
		}()
		<-repo.entered

		second, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionICU, "dr.ito")
		gt.NoError(t, err).Required()
		close(repo.release)
		gt.Error(t, <-firstErr).Is(model.ErrConcurrentModification)

		_, rsv, err := uc.Ledger().Lookup(e.ID, second.Victim.ReservationID)
		gt.NoError(t, err).Required()
		gt.Value(t, rsv.State).Equal(model.ReservationReserved)

		icu, err := uc.Ledger().Pool(e.ID, types.ResourceICUBed)
		gt.NoError(t, err).Required()
		gt.Value(t, icu.Snapshot().Reserved).Equal(1)
	})

	t.Run("deceased is terminal but takes notes", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		v := register(t, uc, e.ID, &model.TriageInput{Category: types.TriageExpectant})

		res, err := uc.Victim.SetDisposition(ctx, v.ID, v.Version, types.DispositionDeceased, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Reservation).Nil()

		_, err = uc.Victim.SetDisposition(ctx, v.ID, res.Victim.Version, types.DispositionAdmitted, testActor)
		gt.Error(t, err).Is(model.ErrTerminalState)

		_, err = uc.Victim.AssignStaff(ctx, v.ID, res.Victim.Version, "dr.ito", testActor)
		gt.Error(t, err).Is(model.ErrTerminalState)

		noted, err := uc.Victim.AddNote(ctx, v.ID, "family informed in person", testActor)
		gt.NoError(t, err).Required()
		gt.Array(t, noted.Victim.Notes).Length(1)
	})

	t.Run("family is told about the disposition", func(t *testing.T) {
		uc, _ := newUseCases(t)
		e := activate(t, uc, types.AlertLevelOrange)
		reg, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{FamilyContact: &model.FamilyContact{Name: "Aki", Phone: "+81-80-0000-0000"}},
			Triage:       delayedAnswers(),
		}, testActor)
		gt.NoError(t, err).Required()

		_, err = uc.Victim.SetDisposition(ctx, reg.Victim.ID, reg.Victim.Version, types.DispositionDischarged, testActor)
		gt.NoError(t, err).Required()

		intents, err := uc.Notification.ListByVictim(ctx, reg.Victim.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, intents).Length(2).Required()
		gt.Value(t, intents[1].Type).Equal(types.NotificationUpdate)
	})
}

func TestVictimWriteRacingClose(t *testing.T) {
	ctx := context.Background()
	uc, repo := newPausingUseCases(t)
	e := activate(t, uc, types.AlertLevelOrange)
	v := register(t, uc, e.ID, delayedAnswers())

	repo.arm()
	assignErr := make(chan error, 1)
	go func() {
		_, err := uc.Victim.AssignStaff(ctx, v.ID, v.Version, "dr.ito", testActor)
		assignErr <- err
	}()
	<-repo.entered

	_, err := uc.Coordinator.Close(ctx, e.ID, "stood down", testActor)
	gt.NoError(t, err).Required()
	close(repo.release)
	gt.Error(t, <-assignErr).Is(model.ErrEventClosed)

	got, err := uc.Victim.Get(ctx, v.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.StaffID).Equal("")
	gt.Value(t, got.Version).Equal(v.Version)
}

func TestIdentify(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	clock := usecase.WithClock(func() time.Time { return today })

	t.Run("name and date of birth are recorded with prior values logged", func(t *testing.T) {
		uc, _ := newUseCases(t, clock)
		e := activate(t, uc, types.AlertLevelYellow)
		age := 30
		reg, err := uc.Victim.Register(ctx, e.ID, usecase.RegisterInput{
			Demographics: model.Demographics{FullName: "unknown male", EstimatedAge: &age},
		}, testActor)
		gt.NoError(t, err).Required()
		v := reg.Victim

		dob := time.Date(1990, 12, 1, 0, 0, 0, 0, time.UTC)
		res, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{
			FullName:    "Taro Yamada",
			DateOfBirth: &dob,
		}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.FullName).Equal("Taro Yamada")
		gt.Value(t, *res.Victim.EstimatedAge).Equal(35)
		gt.Value(t, res.Victim.Version).Equal(v.Version + 1)

		entries := listActivity(t, uc, e.ID)
		last := entries[len(entries)-1]
		gt.Value(t, last.Type).Equal(types.ActivityVictim)
		gt.String(t, last.Description).Contains("identified")
		gt.Value(t, last.Details["previous_full_name"]).Equal("unknown male")
		gt.Value(t, last.Details["previous_estimated_age"]).Equal(30)
	})

	t.Run("identity number links the patient record", func(t *testing.T) {
		uc, _ := newUseCases(t, clock, usecase.WithIdentityLookup(fakeIdentity{identity: &model.Identity{
			PatientRef: "MRN-0099",
			FullName:   "Yuki Tanaka",
			BirthYear:  1980,
		}}))
		e := activate(t, uc, types.AlertLevelYellow)
		v := register(t, uc, e.ID, delayedAnswers())

		res, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{IDNumber: "A1234567"}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.PatientRef).Equal("MRN-0099")
		gt.Value(t, res.Victim.FullName).Equal("Yuki Tanaka")
		gt.Value(t, *res.Victim.EstimatedAge).Equal(46)
		gt.Array(t, res.Warnings).Length(0)
	})

	t.Run("operator name wins over the record", func(t *testing.T) {
		uc, _ := newUseCases(t, usecase.WithIdentityLookup(fakeIdentity{identity: &model.Identity{
			PatientRef: "MRN-0100",
			FullName:   "Y. Tanaka",
		}}))
		e := activate(t, uc, types.AlertLevelYellow)
		v := register(t, uc, e.ID, nil)

		res, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{
			FullName: "Yuki Tanaka",
			IDNumber: "A1234567",
		}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.FullName).Equal("Yuki Tanaka")
		gt.Value(t, res.Victim.PatientRef).Equal("MRN-0100")
	})

	t.Run("lookup failure keeps the name as a warning", func(t *testing.T) {
		uc, _ := newUseCases(t, usecase.WithIdentityLookup(fakeIdentity{err: errors.New("registry timeout")}))
		e := activate(t, uc, types.AlertLevelYellow)
		v := register(t, uc, e.ID, nil)

		res, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{
			FullName: "Ken Mori",
			IDNumber: "B7654321",
		}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Victim.FullName).Equal("Ken Mori")
		gt.Bool(t, res.Warnings.Has(model.WarningIdentityLookupFailed)).True()

		_, err = uc.Victim.Identify(ctx, v.ID, res.Victim.Version, usecase.IdentifyInput{IDNumber: "B7654321"}, testActor)
		gt.Error(t, err)
	})

	t.Run("unknown identity number", func(t *testing.T) {
		uc, _ := newUseCases(t, usecase.WithIdentityLookup(fakeIdentity{}))
		e := activate(t, uc, types.AlertLevelYellow)
		v := register(t, uc, e.ID, nil)

		_, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{IDNumber: "C0000000"}, testActor)
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("validation and versioning", func(t *testing.T) {
		uc, _ := newUseCases(t, clock)
		e := activate(t, uc, types.AlertLevelYellow)
		v := register(t, uc, e.ID, nil)

		_, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)

		future := today.AddDate(0, 0, 1)
		_, err = uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{FullName: "A", DateOfBirth: &future}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)

		_, err = uc.Victim.Identify(ctx, v.ID, v.Version+1, usecase.IdentifyInput{FullName: "A"}, testActor)
		gt.Error(t, err).Is(model.ErrConcurrentModification)

		first, err := uc.Victim.Identify(ctx, v.ID, v.Version, usecase.IdentifyInput{FullName: "Aiko Sato"}, testActor)
		gt.NoError(t, err).Required()
		again, err := uc.Victim.Identify(ctx, v.ID, first.Victim.Version, usecase.IdentifyInput{FullName: "Aiko Sato"}, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, again.Victim.Version).Equal(first.Victim.Version)
	})
}
