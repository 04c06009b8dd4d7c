package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

type enqueueRequest struct {
	EventID   model.EventID             `json:"event_id"`
	VictimID  model.VictimID            `json:"victim_id"`
	Purpose   types.NotificationPurpose `json:"purpose"`
	Recipient string                    `json:"recipient" validate:"required"`
	Contact   string                    `json:"contact" validate:"required"`
	Type      types.NotificationType    `json:"type" validate:"required"`
	Method    types.NotificationMethod  `json:"method" validate:"required"`
	Message   string                    `json:"message" validate:"required"`
}

type victimNotificationsResponse struct {
	FamilyNotified bool                        `json:"family_notified"`
	Notifications  []*model.NotificationIntent `json:"notifications"`
}

type failedRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type acknowledgeRequest struct {
	Response   types.CalloutResponse `json:"response"`
	ETAMinutes *int                  `json:"eta_minutes" validate:"omitempty,gte=0"`
}

func notificationID(r *http.Request) model.NotificationID {
	return model.NotificationID(chi.URLParam(r, "notificationID"))
}

func (s *Server) listVictimNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := victimID(r)
	intents, err := s.uc.Notification.ListByVictim(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	notified, err := s.uc.Notification.HasBeenNotified(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, victimNotificationsResponse{
		FamilyNotified: notified,
		Notifications:  intents,
	}, nil)
}

func (s *Server) enqueueNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req enqueueRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	intent, warnings, err := s.uc.Notification.Enqueue(ctx, usecase.EnqueueInput{
		EventID:   req.EventID,
		VictimID:  req.VictimID,
		Purpose:   req.Purpose,
		Recipient: req.Recipient,
		Contact:   req.Contact,
		Type:      req.Type,
		Method:    req.Method,
		Message:   req.Message,
	}, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, intent, warnings)
}

func (s *Server) markNotificationSent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	intent, warnings, err := s.uc.Notification.MarkSent(ctx, notificationID(r), actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, intent, warnings)
}

func (s *Server) markNotificationFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req failedRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	intent, warnings, err := s.uc.Notification.MarkFailed(ctx, notificationID(r), req.Reason, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, intent, warnings)
}

func (s *Server) acknowledgeCallout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req acknowledgeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, warnings, err := s.uc.Notification.AcknowledgeCallout(ctx, notificationID(r), usecase.CalloutAnswer{
		Response:   req.Response,
		ETAMinutes: req.ETAMinutes,
	}, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, entry, warnings)
}
