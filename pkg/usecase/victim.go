package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/service/resource"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// VictimUseCase owns the victims of an event. Every mutation after Register
// carries the version the caller read; a stale version is rejected with
// model.ErrConcurrentModification instead of overwriting a concurrent change.
type VictimUseCase struct {
	repo         interfaces.Repository
	ledger       *resource.Ledger
	activity     *ActivityUseCase
	notification *NotificationUseCase
	identity     interfaces.IdentityLookup
	areas        []string
	now          func() time.Time
}

func NewVictimUseCase(repo interfaces.Repository, ledger *resource.Ledger, activity *ActivityUseCase, notification *NotificationUseCase, identity interfaces.IdentityLookup, areas []string, now func() time.Time) *VictimUseCase {
	return &VictimUseCase{
		repo:         repo,
		ledger:       ledger,
		activity:     activity,
		notification: notification,
		identity:     identity,
		areas:        areas,
		now:          now,
	}
}

// VictimResult is a committed victim change and its degraded-success warnings
type VictimResult struct {
	Victim   *model.Victim
	Warnings model.Warnings
}

// DispositionResult also carries the reservation made for the disposition.
// Reservation is nil when the disposition needs no resource or none was available.
type DispositionResult struct {
	Victim      *model.Victim
	Reservation *model.Reservation
	Warnings    model.Warnings
}

// RegisterInput is what is known about a victim on arrival. Triage is optional.
type RegisterInput struct {
	Demographics model.Demographics
	Triage       *model.TriageInput
}

// Register creates a victim with a collision-free temporary identifier
func (uc *VictimUseCase) Register(ctx context.Context, eventID model.EventID, in RegisterInput, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var triage *model.TriageResult
	if in.Triage != nil {
		res, err := in.Triage.Resolve()
		if err != nil {
			return nil, err
		}
		triage = &res
	}
	if err := validateDemographics(in.Demographics); err != nil {
		return nil, err
	}

	event, err := getOpenEvent(ctx, uc.repo, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.AcceptsVictims() {
		return nil, goerr.Wrap(model.ErrInvalidTransition, "event does not accept new victims",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.StatusKey, event.Status))
	}

	var warnings model.Warnings
	d := in.Demographics
	patientRef := ""
	if d.ScanID != "" && uc.identity != nil {
		identity, err := uc.identity.Lookup(ctx, d.ScanID)
		switch {
		case err != nil:
			logging.From(ctx).Warn("identity lookup failed, registering without it", "error", err.Error())
			warnings.Add(model.WarningIdentityLookupFailed, err)
		case identity != nil:
			patientRef = identity.PatientRef
			applyIdentity(&d, identity, uc.now())
		}
	}

	seq, err := uc.repo.Victim().NextSeq(ctx, eventID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to allocate victim sequence", goerr.V(model.EventIDKey, eventID))
	}

	now := uc.now()
	v := &model.Victim{
		ID:             model.NewVictimID(),
		EventID:        eventID,
		Seq:            seq,
		TempID:         model.FormatTempID(event.Code, seq),
		Status:         types.WorkflowRegistered,
		FullName:       d.FullName,
		EstimatedAge:   d.EstimatedAge,
		Gender:         d.Gender,
		ChiefComplaint: d.ChiefComplaint,
		Injuries:       d.Injuries,
		PatientRef:     patientRef,
		FamilyContact:  d.FamilyContact,
		ArrivedAt:      now,
		UpdatedAt:      now,
	}
	if triage != nil {
		applyTriage(v, *triage)
	}

	created, err := uc.repo.Victim().Create(ctx, v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create victim", goerr.V(model.EventIDKey, eventID))
	}

	details := map[string]any{
		"victim_id": string(created.ID),
		"temp_id":   created.TempID,
		"status":    string(created.Status),
	}
	if created.Triage != nil {
		details["category"] = string(created.Triage.Category)
		details["tag_code"] = created.TagCode
	}
	if created.PatientRef != "" {
		details["patient_ref"] = created.PatientRef
	}

	if created.FamilyContact != nil {
		n, err := uc.notifyFamily(ctx, created, types.NotificationInitial,
			fmt.Sprintf("%s has been registered at the hospital emergency department as %s.", familySubject(created), created.TempID))
		if err != nil {
			warnings.Add(model.WarningNotificationFailed, err)
		} else {
			details["notification_id"] = string(n.ID)
		}
	}

	warnings.Merge(uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityVictim,
		"victim registered "+created.TempID, details)))

	return &VictimResult{Victim: created, Warnings: warnings}, nil
}

func validateDemographics(d model.Demographics) error {
	if d.EstimatedAge != nil && (*d.EstimatedAge < 0 || *d.EstimatedAge > 150) {
		return goerr.Wrap(model.ErrValidation, "estimated age out of range", goerr.V("age", *d.EstimatedAge))
	}
	if d.FamilyContact != nil && d.FamilyContact.Phone == "" {
		return goerr.Wrap(model.ErrValidation, "family contact requires a phone number")
	}
	return nil
}

// applyIdentity fills blanks from a confirmed identity; operator input wins
func applyIdentity(d *model.Demographics, identity *model.Identity, now time.Time) {
	if d.FullName == "" {
		d.FullName = identity.FullName
	}
	if d.Gender == "" {
		d.Gender = identity.Gender
	}
	if d.EstimatedAge == nil && identity.BirthYear > 0 {
		age := now.Year() - identity.BirthYear
		if age >= 0 {
			d.EstimatedAge = &age
		}
	}
}

func applyTriage(v *model.Victim, res model.TriageResult) {
	v.Triage = &res
	v.TagCode = model.FormatTagCode(res.Color, v.Seq)
	v.Status = types.WorkflowTriaged
	if v.AreaID == "" {
		v.AreaID = res.Category.DefaultArea()
	}
}

func familySubject(v *model.Victim) string {
	if v.FullName != "" {
		return v.FullName
	}
	return "Your family member"
}

func (uc *VictimUseCase) notifyFamily(ctx context.Context, v *model.Victim, typ types.NotificationType, message string) (*model.NotificationIntent, error) {
	return uc.notification.enqueue(ctx, EnqueueInput{
		EventID:   v.EventID,
		VictimID:  v.ID,
		Purpose:   types.NotificationPurposeFamily,
		Recipient: v.FamilyContact.Name,
		Contact:   v.FamilyContact.Phone,
		Type:      typ,
		Method:    types.NotificationMethodPhone,
		Message:   message,
	})
}

// mutation changes a loaded victim. It reports whether anything changed; an
// unchanged victim is not written and keeps its version.
type mutation func(e *model.Event, v *model.Victim) (bool, error)

// mutate loads a victim of an open event, applies fn and stores the result
// if the caller's version is still current.
func (uc *VictimUseCase) mutate(ctx context.Context, id model.VictimID, expectedVersion int64, fn mutation) (before, after *model.Victim, changed bool, err error) {
	v, err := uc.repo.Victim().Get(ctx, id)
	if err != nil {
		return nil, nil, false, goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, id))
	}
	event, err := getOpenEvent(ctx, uc.repo, v.EventID)
	if err != nil {
		return nil, nil, false, err
	}
	if v.Version != expectedVersion {
		return nil, nil, false, goerr.Wrap(model.ErrConcurrentModification, "victim version is stale",
			goerr.V(model.VictimIDKey, id),
			goerr.V(model.ExpectedKey, expectedVersion),
			goerr.V(model.ActualKey, v.Version))
	}

	before = model.CopyVictim(v)
	changed, err = fn(event, v)
	if err != nil {
		return nil, nil, false, err
	}
	if !changed {
		return before, v, false, nil
	}

	v.UpdatedAt = uc.now()
	updated, err := uc.repo.Victim().Update(ctx, v, expectedVersion)
	if err != nil {
		return nil, nil, false, goerr.Wrap(err, "failed to update victim", goerr.V(model.VictimIDKey, id))
	}
	return before, updated, true, nil
}

func notResolved(v *model.Victim) error {
	if v.IsResolved() {
		return goerr.Wrap(model.ErrTerminalState, "victim is resolved; only notes may be added",
			goerr.V(model.VictimIDKey, v.ID),
			goerr.V(DispositionKey, v.Disposition))
	}
	return nil
}

// Triage applies the first triage to a registered victim. A victim is
// triaged exactly once; later changes go through Retriage.
func (uc *VictimUseCase) Triage(ctx context.Context, id model.VictimID, expectedVersion int64, in model.TriageInput, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	res, err := in.Resolve()
	if err != nil {
		return nil, err
	}

	_, v, _, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := notResolved(v); err != nil {
			return false, err
		}
		if v.Triage != nil {
			return false, goerr.Wrap(model.ErrInvalidTransition, "victim is already triaged; use retriage",
				goerr.V(model.VictimIDKey, v.ID))
		}
		applyTriage(v, res)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityTriage,
		fmt.Sprintf("victim %s triaged %s", v.TempID, res.Category), map[string]any{
			"victim_id": string(v.ID),
			"category":  string(res.Category),
			"color":     string(res.Color),
			"tag_code":  v.TagCode,
			"start":     in.START != nil,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// Retriage changes a recorded triage and reissues the tag code with the new
// color. The prior category and tag are kept in the activity log entry so
// the history survives the overwrite.
func (uc *VictimUseCase) Retriage(ctx context.Context, id model.VictimID, expectedVersion int64, in model.TriageInput, actor, justification string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(justification) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "retriage requires a justification")
	}
	res, err := in.Resolve()
	if err != nil {
		return nil, err
	}

	before, v, _, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := notResolved(v); err != nil {
			return false, err
		}
		if v.Triage == nil {
			return false, goerr.Wrap(model.ErrInvalidTransition, "victim has not been triaged yet",
				goerr.V(model.VictimIDKey, v.ID))
		}
		if v.Triage.Category == res.Category {
			return false, goerr.Wrap(model.ErrValidation, "retriage does not change the category",
				goerr.V(model.VictimIDKey, v.ID),
				goerr.V(model.CategoryKey, res.Category))
		}
		t := res
		v.Triage = &t
		v.TagCode = model.FormatTagCode(res.Color, v.Seq)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityTriage,
		fmt.Sprintf("victim %s retriaged %s -> %s", v.TempID, before.Triage.Category, res.Category), map[string]any{
			"victim_id":     string(v.ID),
			"from":          string(before.Triage.Category),
			"to":            string(res.Category),
			"from_color":    string(before.Triage.Color),
			"to_color":      string(res.Color),
			"from_tag":      before.TagCode,
			"to_tag":        v.TagCode,
			"justification": justification,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// AssignArea moves a victim to a treatment area. Assigning the current area is a no-op.
func (uc *VictimUseCase) AssignArea(ctx context.Context, id model.VictimID, expectedVersion int64, areaID, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if areaID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "area is required")
	}
	if len(uc.areas) > 0 && !slices.Contains(uc.areas, areaID) {
		return nil, goerr.Wrap(model.ErrValidation, "unknown treatment area", goerr.V(AreaKey, areaID))
	}

	before, v, changed, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := notResolved(v); err != nil {
			return false, err
		}
		if v.AreaID == areaID {
			return false, nil
		}
		v.AreaID = areaID
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &VictimResult{Victim: v}, nil
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("victim %s moved to %s", v.TempID, areaID), map[string]any{
			"victim_id": string(v.ID),
			"from":      before.AreaID,
			"to":        areaID,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// AssignStaff sets the attending staff member. Assigning the current one is a no-op.
func (uc *VictimUseCase) AssignStaff(ctx context.Context, id model.VictimID, expectedVersion int64, staffID, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if staffID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "staff is required")
	}

	before, v, changed, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := notResolved(v); err != nil {
			return false, err
		}
		if v.StaffID == staffID {
			return false, nil
		}
		v.StaffID = staffID
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &VictimResult{Victim: v}, nil
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("victim %s assigned to %s", v.TempID, staffID), map[string]any{
			"victim_id": string(v.ID),
			"from":      before.StaffID,
			"to":        staffID,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// BeginTreatment moves a triaged victim into treatment
func (uc *VictimUseCase) BeginTreatment(ctx context.Context, id model.VictimID, expectedVersion int64, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	_, v, changed, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := notResolved(v); err != nil {
			return false, err
		}
		switch v.Status {
		case types.WorkflowInTreatment:
			return false, nil
		case types.WorkflowTriaged:
			v.Status = types.WorkflowInTreatment
			return true, nil
		default:
			return false, goerr.Wrap(model.ErrInvalidTransition, "victim must be triaged before treatment",
				goerr.V(model.VictimIDKey, v.ID),
				goerr.V(model.StatusKey, v.Status))
		}
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &VictimResult{Victim: v}, nil
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("victim %s in treatment", v.TempID), map[string]any{
			"victim_id": string(v.ID),
			"area":      v.AreaID,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// RecordVitals replaces the vital signs snapshot
func (uc *VictimUseCase) RecordVitals(ctx context.Context, id model.VictimID, expectedVersion int64, vitals model.VitalSigns, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateVitals(vitals); err != nil {
		return nil, err
	}

	_, v, _, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := notResolved(v); err != nil {
			return false, err
		}
		vs := vitals
		vs.RecordedAt = uc.now()
		vs.RecordedBy = actor
		v.Vitals = &vs
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("vitals recorded for %s", v.TempID), map[string]any{
			"victim_id":        string(v.ID),
			"respiratory_rate": vitals.RespiratoryRate,
			"pulse_rate":       vitals.PulseRate,
			"systolic_bp":      vitals.SystolicBP,
			"spo2":             vitals.SpO2,
			"gcs":              vitals.GCS,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

func validateVitals(vs model.VitalSigns) error {
	if vs.RespiratoryRate < 0 || vs.PulseRate < 0 || vs.SystolicBP < 0 {
		return goerr.Wrap(model.ErrValidation, "vital signs must not be negative")
	}
	if vs.SpO2 < 0 || vs.SpO2 > 100 {
		return goerr.Wrap(model.ErrValidation, "SpO2 out of range", goerr.V("spo2", vs.SpO2))
	}
	if vs.GCS != 0 && (vs.GCS < 3 || vs.GCS > 15) {
		return goerr.Wrap(model.ErrValidation, "GCS out of range", goerr.V("gcs", vs.GCS))
	}
	return nil
}

// SetDisposition records where a victim goes. The disposition is written even
// when the matching resource cannot be reserved; the shortfall comes back as
// a warning. Reservations are keyed by (victim, category), so repeating the
// call never reserves twice.
func (uc *VictimUseCase) SetDisposition(ctx context.Context, id model.VictimID, expectedVersion int64, disposition types.Disposition, actor string) (*DispositionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !disposition.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid disposition", goerr.V(DispositionKey, disposition))
	}

	gate := func(v *model.Victim) error {
		if v.IsTerminal() {
			return goerr.Wrap(model.ErrTerminalState, "victim has a terminal disposition",
				goerr.V(model.VictimIDKey, v.ID),
				goerr.V(DispositionKey, v.Disposition))
		}
		if !v.Status.AtLeast(types.WorkflowTriaged) {
			return goerr.Wrap(model.ErrInvalidTransition, "victim must be triaged before disposition",
				goerr.V(model.VictimIDKey, v.ID),
				goerr.V(model.StatusKey, v.Status))
		}
		return nil
	}

	current, err := uc.repo.Victim().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, id))
	}
	if _, err := getOpenEvent(ctx, uc.repo, current.EventID); err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, goerr.Wrap(model.ErrConcurrentModification, "victim version is stale",
			goerr.V(model.VictimIDKey, id),
			goerr.V(model.ExpectedKey, expectedVersion),
			goerr.V(model.ActualKey, current.Version))
	}
	if err := gate(current); err != nil {
		return nil, err
	}

	var (
		warnings model.Warnings
		rsv      *model.Reservation
		fresh    bool
	)
	category, needsResource := disposition.ResourceCategory()
	if needsResource {
		r, existing, err := uc.ledger.Reserve(current.EventID, category, 1, model.ReservationDedupKey(id, category))
		if err != nil {
			if errors.Is(err, model.ErrEventClosed) {
				return nil, err
			}
			warnings.Add(model.WarningResourceShortfall, goerr.Wrap(err, "no resource reserved for disposition",
				goerr.V(model.VictimIDKey, id),
				goerr.V(model.CategoryKey, category)))
		} else {
			rsv, fresh = r, !existing
		}
	}

	before, v, changed, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		if err := gate(v); err != nil {
			return false, err
		}
		var rsvID model.ReservationID
		if rsv != nil {
			rsvID = rsv.ID
		} else if needsResource && v.Disposition == disposition {
			rsvID = v.ReservationID
		}
		if v.Disposition == disposition && v.ReservationID == rsvID {
			return false, nil
		}
		v.Disposition = disposition
		v.Status = types.WorkflowResolved
		v.ReservationID = rsvID
		return true, nil
	})
	if err != nil {
		if rsv != nil && fresh {
			uc.rollbackReservation(ctx, id, rsv)
		}
		return nil, err
	}
	if !changed {
		return &DispositionResult{Victim: v, Reservation: rsv, Warnings: warnings}, nil
	}

	if before.ReservationID != "" && before.ReservationID != v.ReservationID {
		if _, _, err := uc.ledger.Release(v.EventID, before.ReservationID); err != nil {
			warnings.Add(model.WarningReleaseFailed, goerr.Wrap(err, "failed to release prior reservation",
				goerr.V(model.ReservationIDKey, before.ReservationID)))
		}
	}

	details := map[string]any{
		"victim_id": string(v.ID),
		"to":        string(disposition),
	}
	if before.Disposition != "" {
		details["from"] = string(before.Disposition)
	}
	if rsv != nil {
		details["reservation_id"] = string(rsv.ID)
		details["category"] = string(rsv.Category)
	}
	if warnings.Has(model.WarningResourceShortfall) {
		details["shortfall"] = string(category)
	}

	if v.FamilyContact != nil {
		if _, err := uc.notifyFamily(ctx, v, types.NotificationUpdate,
			fmt.Sprintf("Update on %s (%s): %s.", familySubject(v), v.TempID, dispositionText(disposition))); err != nil {
			warnings.Add(model.WarningNotificationFailed, err)
		}
	}

	warnings.Merge(uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("victim %s disposition %s", v.TempID, disposition), details)))

	return &DispositionResult{Victim: v, Reservation: rsv, Warnings: warnings}, nil
}

// rollbackReservation releases a reservation made for a disposition that did
// not commit. A concurrent call with the same disposition shares the dedup
// key, so the reservation is kept when the stored victim already holds it.
func (uc *VictimUseCase) rollbackReservation(ctx context.Context, id model.VictimID, rsv *model.Reservation) {
	stored, err := uc.repo.Victim().Get(ctx, id)
	if err == nil && stored.ReservationID == rsv.ID {
		logging.From(ctx).Debug("reservation kept by concurrent disposition", "reservation_id", rsv.ID)
		return
	}
	if _, _, relErr := uc.ledger.Release(rsv.EventID, rsv.ID); relErr != nil {
		logging.From(ctx).Warn("failed to roll back reservation", "reservation_id", rsv.ID, "error", relErr.Error())
	}
}

func dispositionText(d types.Disposition) string {
	switch d {
	case types.DispositionAdmitted:
		return "admitted to a ward"
	case types.DispositionOR:
		return "taken to surgery"
	case types.DispositionICU:
		return "admitted to intensive care"
	case types.DispositionDischarged:
		return "discharged"
	case types.DispositionTransferred:
		return "transferred to another facility"
	case types.DispositionDeceased:
		return "please contact the family liaison desk"
	default:
		return string(d)
	}
}

// AddNote appends a note. Notes are allowed on every victim of an open
// event, including resolved and deceased ones, and need no version.
func (uc *VictimUseCase) AddNote(ctx context.Context, id model.VictimID, text, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "note text is required")
	}

	var v *model.Victim
	err := retryOnConflict(func() error {
		current, err := uc.repo.Victim().Get(ctx, id)
		if err != nil {
			return goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, id))
		}
		_, v, _, err = uc.mutate(ctx, id, current.Version, func(_ *model.Event, v *model.Victim) (bool, error) {
			v.Notes = append(v.Notes, model.Note{Text: text, Author: actor, CreatedAt: uc.now()})
			return true, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("note added to %s", v.TempID), map[string]any{
			"victim_id": string(v.ID),
			"note":      text,
		}))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// IdentifyInput confirms who a victim is. IDNumber is resolved through the
// identity service and links the patient record on a match.
type IdentifyInput struct {
	FullName    string
	IDNumber    string
	DateOfBirth *time.Time
}

// Identify records a victim's confirmed identity. Operator input wins over
// the identity service. When the service fails but a name was given, the
// name is still recorded and the failure comes back as a warning.
func (uc *VictimUseCase) Identify(ctx context.Context, id model.VictimID, expectedVersion int64, in IdentifyInput, actor string) (*VictimResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" && in.IDNumber == "" {
		return nil, goerr.Wrap(model.ErrValidation, "name or identity number is required")
	}
	now := uc.now()
	if in.DateOfBirth != nil && in.DateOfBirth.After(now) {
		return nil, goerr.Wrap(model.ErrValidation, "date of birth is in the future")
	}

	var warnings model.Warnings
	fullName := strings.TrimSpace(in.FullName)
	patientRef := ""
	var age *int
	if in.DateOfBirth != nil {
		a := ageAt(*in.DateOfBirth, now)
		age = &a
	}

	if in.IDNumber != "" && uc.identity != nil {
		identity, err := uc.identity.Lookup(ctx, in.IDNumber)
		switch {
		case err != nil && fullName == "":
			return nil, goerr.Wrap(err, "identity lookup failed", goerr.V(model.VictimIDKey, id))
		case err != nil:
			logging.From(ctx).Warn("identity lookup failed, identifying by name only", "error", err.Error())
			warnings.Add(model.WarningIdentityLookupFailed, err)
		case identity != nil:
			patientRef = identity.PatientRef
			if fullName == "" {
				fullName = identity.FullName
			}
			if age == nil && identity.BirthYear > 0 && now.Year() >= identity.BirthYear {
				a := now.Year() - identity.BirthYear
				age = &a
			}
		}
	}
	if fullName == "" && patientRef == "" {
		return nil, goerr.Wrap(model.ErrNotFound, "no identity found for the identity number", goerr.V(model.VictimIDKey, id))
	}

	before, v, changed, err := uc.mutate(ctx, id, expectedVersion, func(_ *model.Event, v *model.Victim) (bool, error) {
		changed := false
		if fullName != "" && v.FullName != fullName {
			v.FullName = fullName
			changed = true
		}
		if patientRef != "" && v.PatientRef != patientRef {
			v.PatientRef = patientRef
			changed = true
		}
		if age != nil && (v.EstimatedAge == nil || *v.EstimatedAge != *age) {
			v.EstimatedAge = age
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &VictimResult{Victim: v, Warnings: warnings}, nil
	}

	details := map[string]any{
		"victim_id":            string(v.ID),
		"previous_full_name":   before.FullName,
		"previous_patient_ref": before.PatientRef,
	}
	if v.PatientRef != "" {
		details["patient_ref"] = v.PatientRef
	}
	if before.EstimatedAge != nil {
		details["previous_estimated_age"] = *before.EstimatedAge
	}

	warnings.Merge(uc.activity.record(ctx, newEntry(v.EventID, actor, types.ActivityVictim,
		fmt.Sprintf("victim %s identified", v.TempID), details)))
	return &VictimResult{Victim: v, Warnings: warnings}, nil
}

// ageAt is the age in whole years on the given day
func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func (uc *VictimUseCase) Get(ctx context.Context, id model.VictimID) (*model.Victim, error) {
	v, err := uc.repo.Victim().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, id))
	}
	return v, nil
}

// List returns victims of an event in arrival order
func (uc *VictimUseCase) List(ctx context.Context, eventID model.EventID, filter model.VictimFilter) ([]*model.Victim, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid category filter", goerr.V(model.CategoryKey, filter.Category))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid status filter", goerr.V(model.StatusKey, filter.Status))
	}
	if _, err := getEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	victims, err := uc.repo.Victim().List(ctx, eventID, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list victims", goerr.V(model.EventIDKey, eventID))
	}
	return victims, nil
}

// Search matches query against temporary ID, tag code, name and patient reference
func (uc *VictimUseCase) Search(ctx context.Context, eventID model.EventID, query string) ([]*model.Victim, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, goerr.Wrap(model.ErrValidation, "search query is required")
	}

	victims, err := uc.List(ctx, eventID, model.VictimFilter{})
	if err != nil {
		return nil, err
	}

	var out []*model.Victim
	for _, v := range victims {
		for _, field := range []string{v.TempID, v.TagCode, v.FullName, v.PatientRef} {
			if field != "" && strings.Contains(strings.ToLower(field), q) {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}
