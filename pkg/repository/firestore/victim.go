package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type triageDoc struct {
	Category string `firestore:"Category"`
	Color    string `firestore:"Color"`
	Label    string `firestore:"Label"`
}

type familyContactDoc struct {
	Name         string `firestore:"Name"`
	Relationship string `firestore:"Relationship"`
	Phone        string `firestore:"Phone"`
}

type vitalsDoc struct {
	RespiratoryRate int64     `firestore:"RespiratoryRate"`
	PulseRate       int64     `firestore:"PulseRate"`
	SystolicBP      int64     `firestore:"SystolicBP"`
	SpO2            int64     `firestore:"SpO2"`
	GCS             int64     `firestore:"GCS"`
	RecordedAt      time.Time `firestore:"RecordedAt"`
	RecordedBy      string    `firestore:"RecordedBy"`
}

type noteDoc struct {
	Text      string    `firestore:"Text"`
	Author    string    `firestore:"Author"`
	CreatedAt time.Time `firestore:"CreatedAt"`
}

type victimDoc struct {
	ID             string            `firestore:"ID"`
	EventID        string            `firestore:"EventID"`
	Seq            int64             `firestore:"Seq"`
	TempID         string            `firestore:"TempID"`
	TagCode        string            `firestore:"TagCode"`
	Triage         *triageDoc        `firestore:"Triage"`
	Category       string            `firestore:"Category"`
	Status         string            `firestore:"Status"`
	FullName       string            `firestore:"FullName"`
	EstimatedAge   *int64            `firestore:"EstimatedAge"`
	Gender         string            `firestore:"Gender"`
	ChiefComplaint string            `firestore:"ChiefComplaint"`
	Injuries       []string          `firestore:"Injuries"`
	PatientRef     string            `firestore:"PatientRef"`
	AreaID         string            `firestore:"AreaID"`
	StaffID        string            `firestore:"StaffID"`
	Disposition    string            `firestore:"Disposition"`
	ReservationID  string            `firestore:"ReservationID"`
	FamilyContact  *familyContactDoc `firestore:"FamilyContact"`
	FamilyNotified bool              `firestore:"FamilyNotified"`
	Vitals         *vitalsDoc        `firestore:"Vitals"`
	Notes          []noteDoc         `firestore:"Notes"`
	ArrivedAt      time.Time         `firestore:"ArrivedAt"`
	UpdatedAt      time.Time         `firestore:"UpdatedAt"`
	Version        int64             `firestore:"Version"`
}

func toVictimDoc(v *model.Victim) *victimDoc {
	d := &victimDoc{
		ID:             string(v.ID),
		EventID:        string(v.EventID),
		Seq:            v.Seq,
		TempID:         v.TempID,
		TagCode:        v.TagCode,
		Category:       string(v.Category()),
		Status:         string(v.Status),
		FullName:       v.FullName,
		Gender:         v.Gender,
		ChiefComplaint: v.ChiefComplaint,
		Injuries:       v.Injuries,
		PatientRef:     v.PatientRef,
		AreaID:         v.AreaID,
		StaffID:        v.StaffID,
		Disposition:    string(v.Disposition),
		ReservationID:  string(v.ReservationID),
		FamilyNotified: v.FamilyNotified,
		ArrivedAt:      v.ArrivedAt,
		UpdatedAt:      v.UpdatedAt,
		Version:        v.Version,
	}
	if v.Triage != nil {
		d.Triage = &triageDoc{
			Category: string(v.Triage.Category),
			Color:    string(v.Triage.Color),
			Label:    v.Triage.Label,
		}
	}
	if v.EstimatedAge != nil {
		age := int64(*v.EstimatedAge)
		d.EstimatedAge = &age
	}
	if v.FamilyContact != nil {
		d.FamilyContact = &familyContactDoc{
			Name:         v.FamilyContact.Name,
			Relationship: v.FamilyContact.Relationship,
			Phone:        v.FamilyContact.Phone,
		}
	}
	if v.Vitals != nil {
		d.Vitals = &vitalsDoc{
			RespiratoryRate: int64(v.Vitals.RespiratoryRate),
			PulseRate:       int64(v.Vitals.PulseRate),
			SystolicBP:      int64(v.Vitals.SystolicBP),
			SpO2:            int64(v.Vitals.SpO2),
			GCS:             int64(v.Vitals.GCS),
			RecordedAt:      v.Vitals.RecordedAt,
			RecordedBy:      v.Vitals.RecordedBy,
		}
	}
	for _, n := range v.Notes {
		d.Notes = append(d.Notes, noteDoc(n))
	}
	return d
}

func fromVictimDoc(d *victimDoc) *model.Victim {
	v := &model.Victim{
		ID:             model.VictimID(d.ID),
		EventID:        model.EventID(d.EventID),
		Seq:            d.Seq,
		TempID:         d.TempID,
		TagCode:        d.TagCode,
		Status:         types.WorkflowStatus(d.Status),
		FullName:       d.FullName,
		Gender:         d.Gender,
		ChiefComplaint: d.ChiefComplaint,
		Injuries:       d.Injuries,
		PatientRef:     d.PatientRef,
		AreaID:         d.AreaID,
		StaffID:        d.StaffID,
		Disposition:    types.Disposition(d.Disposition),
		ReservationID:  model.ReservationID(d.ReservationID),
		FamilyNotified: d.FamilyNotified,
		ArrivedAt:      d.ArrivedAt,
		UpdatedAt:      d.UpdatedAt,
		Version:        d.Version,
	}
	if d.Triage != nil {
		v.Triage = &model.TriageResult{
			Category: types.TriageCategory(d.Triage.Category),
			Color:    types.TriageColor(d.Triage.Color),
			Label:    d.Triage.Label,
		}
	}
	if d.EstimatedAge != nil {
		age := int(*d.EstimatedAge)
		v.EstimatedAge = &age
	}
	if d.FamilyContact != nil {
		v.FamilyContact = &model.FamilyContact{
			Name:         d.FamilyContact.Name,
			Relationship: d.FamilyContact.Relationship,
			Phone:        d.FamilyContact.Phone,
		}
	}
	if d.Vitals != nil {
		v.Vitals = &model.VitalSigns{
			RespiratoryRate: int(d.Vitals.RespiratoryRate),
			PulseRate:       int(d.Vitals.PulseRate),
			SystolicBP:      int(d.Vitals.SystolicBP),
			SpO2:            int(d.Vitals.SpO2),
			GCS:             int(d.Vitals.GCS),
			RecordedAt:      d.Vitals.RecordedAt,
			RecordedBy:      d.Vitals.RecordedBy,
		}
	}
	for _, n := range d.Notes {
		v.Notes = append(v.Notes, model.Note(n))
	}
	return v
}

type victimRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *victimRepository) victimsCollection() string {
	return collectionName(r.collectionPrefix, "victims")
}

func (r *victimRepository) eventRef(id string) *firestore.DocumentRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "events")).Doc(id)
}

func (r *victimRepository) counterCollection() string {
	return collectionName(r.collectionPrefix, "counters")
}

func (r *victimRepository) NextSeq(ctx context.Context, eventID model.EventID) (int64, error) {
	counterRef := r.client.Collection(r.counterCollection()).Doc(fmt.Sprintf("victim_seq_%s", eventID))
	seq, err := incrementCounter(ctx, r.client, counterRef)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to allocate victim sequence", goerr.V(model.EventIDKey, eventID))
	}
	return seq, nil
}

// incrementCounter bumps the "value" field of ref in a transaction and returns the new value
func incrementCounter(ctx context.Context, client *firestore.Client, ref *firestore.DocumentRef) (int64, error) {
	var next int64
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				next = 1
				return tx.Set(ref, map[string]interface{}{"value": next})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		current, err := snap.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}
		val, ok := current.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", current))
		}
		next = val + 1
		return tx.Update(ref, []firestore.Update{{Path: "value", Value: next}})
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *victimRepository) Create(ctx context.Context, v *model.Victim) (*model.Victim, error) {
	created := model.CopyVictim(v)
	created.Version = 1
	created.UpdatedAt = time.Now().UTC()

	ref := r.client.Collection(r.victimsCollection()).Doc(string(v.ID))
	if _, err := ref.Create(ctx, toVictimDoc(created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrConflict, "victim already exists", goerr.V(model.VictimIDKey, v.ID))
		}
		return nil, goerr.Wrap(err, "failed to create victim", goerr.V(model.VictimIDKey, v.ID))
	}
	return created, nil
}

func (r *victimRepository) Get(ctx context.Context, id model.VictimID) (*model.Victim, error) {
	snap, err := r.client.Collection(r.victimsCollection()).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "victim not found", goerr.V(model.VictimIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, id))
	}

	var d victimDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode victim", goerr.V(model.VictimIDKey, id))
	}
	return fromVictimDoc(&d), nil
}

func (r *victimRepository) List(ctx context.Context, eventID model.EventID, filter model.VictimFilter) ([]*model.Victim, error) {
	iter := r.client.Collection(r.victimsCollection()).
		Where("EventID", "==", string(eventID)).
		OrderBy("Seq", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	victims := []*model.Victim{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate victims", goerr.V(model.EventIDKey, eventID))
		}

		var d victimDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode victim", goerr.V("doc_id", snap.Ref.ID))
		}
		if v := fromVictimDoc(&d); filter.Match(v) {
			victims = append(victims, v)
		}
	}
	return victims, nil
}

func (r *victimRepository) Update(ctx context.Context, v *model.Victim, expectedVersion int64) (*model.Victim, error) {
	ref := r.client.Collection(r.victimsCollection()).Doc(string(v.ID))

	var updated *model.Victim
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "victim not found", goerr.V(model.VictimIDKey, v.ID))
			}
			return goerr.Wrap(err, "failed to get victim")
		}

		var current victimDoc
		if err := snap.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode victim")
		}
		if current.Version != expectedVersion {
			return goerr.Wrap(model.ErrConcurrentModification, "victim was modified concurrently",
				goerr.V(model.VictimIDKey, v.ID),
				goerr.V(model.ExpectedKey, expectedVersion),
				goerr.V(model.ActualKey, current.Version))
		}
		if err := ensureEventOpen(tx, r.eventRef(current.EventID)); err != nil {
			return err
		}

		updated = model.CopyVictim(v)
		updated.EventID = model.EventID(current.EventID)
		updated.Seq = current.Seq
		updated.TempID = current.TempID
		updated.ArrivedAt = current.ArrivedAt
		updated.Version = current.Version + 1
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, toVictimDoc(updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update victim", goerr.V(model.VictimIDKey, v.ID))
	}

	return updated, nil
}
