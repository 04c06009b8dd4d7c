package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

func TestInquiry(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCases(t)
	e := activate(t, uc, types.AlertLevelOrange)
	v := register(t, uc, e.ID, delayedAnswers())

	input := usecase.InquiryInput{
		InquirerName:  "Sachiko Ito",
		InquirerPhone: "+81-90-7777-8888",
		Relationship:  "mother",
		Description:   "son, 20s, was on the bus",
	}

	t.Run("required fields", func(t *testing.T) {
		_, err := uc.Inquiry.RegisterInquiry(ctx, e.ID, usecase.InquiryInput{InquirerName: "x"}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)

		_, err = uc.Inquiry.RegisterInquiry(ctx, e.ID, usecase.InquiryInput{InquirerName: "x", InquirerPhone: "1"}, testActor)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("matched to a victim", func(t *testing.T) {
		res, err := uc.Inquiry.RegisterInquiry(ctx, e.ID, input, testActor)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Inquiry.Status).Equal(types.InquiryPending)

		resolved, err := uc.Inquiry.ResolveInquiry(ctx, res.Inquiry.ID, v.ID, "identified by jacket", "liaison")
		gt.NoError(t, err).Required()
		gt.Value(t, resolved.Inquiry.Status).Equal(types.InquiryMatched)
		gt.Value(t, resolved.Inquiry.MatchedVictimID).Equal(v.ID)
		gt.Value(t, resolved.Inquiry.ResolvedBy).Equal("liaison")

		_, err = uc.Inquiry.ResolveInquiry(ctx, res.Inquiry.ID, "", "", "liaison")
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})

	t.Run("not found", func(t *testing.T) {
		res, err := uc.Inquiry.RegisterInquiry(ctx, e.ID, input, testActor)
		gt.NoError(t, err).Required()

		resolved, err := uc.Inquiry.ResolveInquiry(ctx, res.Inquiry.ID, "", "no match among registered victims", "liaison")
		gt.NoError(t, err).Required()
		gt.Value(t, resolved.Inquiry.Status).Equal(types.InquiryNotFound)
	})

	t.Run("victim of another event", func(t *testing.T) {
		other, _ := newUseCases(t)
		oe := activate(t, other, types.AlertLevelGreen)
		ov := register(t, other, oe.ID, nil)

		res, err := uc.Inquiry.RegisterInquiry(ctx, e.ID, input, testActor)
		gt.NoError(t, err).Required()

		_, err = uc.Inquiry.ResolveInquiry(ctx, res.Inquiry.ID, ov.ID, "", "liaison")
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		inquiries, err := uc.Inquiry.List(ctx, e.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, inquiries).Length(3)
	})
}
