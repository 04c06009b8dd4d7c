package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

type inquiryRepository struct {
	mu        sync.RWMutex
	inquiries map[model.InquiryID]*model.Inquiry
	order     []model.InquiryID
}

func newInquiryRepository() *inquiryRepository {
	return &inquiryRepository{
		inquiries: make(map[model.InquiryID]*model.Inquiry),
	}
}

func copyInquiry(q *model.Inquiry) *model.Inquiry {
	c := *q
	c.ResolvedAt = copyTimePtr(q.ResolvedAt)
	return &c
}

func (r *inquiryRepository) Create(ctx context.Context, q *model.Inquiry) (*model.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.inquiries[q.ID]; exists {
		return nil, goerr.Wrap(model.ErrConflict, "inquiry already exists", goerr.V(model.InquiryIDKey, q.ID))
	}

	created := copyInquiry(q)
	r.inquiries[created.ID] = created
	r.order = append(r.order, created.ID)
	return copyInquiry(created), nil
}

func (r *inquiryRepository) Get(ctx context.Context, id model.InquiryID) (*model.Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, exists := r.inquiries[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "inquiry not found", goerr.V(model.InquiryIDKey, id))
	}
	return copyInquiry(q), nil
}

func (r *inquiryRepository) Update(ctx context.Context, q *model.Inquiry) (*model.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.inquiries[q.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "inquiry not found", goerr.V(model.InquiryIDKey, q.ID))
	}

	updated := copyInquiry(q)
	updated.EventID = existing.EventID
	updated.CreatedAt = existing.CreatedAt
	r.inquiries[updated.ID] = updated
	return copyInquiry(updated), nil
}

func (r *inquiryRepository) List(ctx context.Context, eventID model.EventID) ([]*model.Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Inquiry{}
	for _, id := range r.order {
		if q := r.inquiries[id]; q.EventID == eventID {
			out = append(out, copyInquiry(q))
		}
	}
	return out, nil
}
