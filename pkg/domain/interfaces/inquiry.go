package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// InquiryRepository defines the interface for family inquiries
type InquiryRepository interface {
	Create(ctx context.Context, q *model.Inquiry) (*model.Inquiry, error)
	Get(ctx context.Context, id model.InquiryID) (*model.Inquiry, error)
	Update(ctx context.Context, q *model.Inquiry) (*model.Inquiry, error)
	List(ctx context.Context, eventID model.EventID) ([]*model.Inquiry, error)
}
