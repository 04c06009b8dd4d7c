package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/secmon-lab/asclepius/pkg/usecase"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

type Server struct {
	router             *chi.Mux
	uc                 *usecase.UseCases
	validate           *validator.Validate
	slackInteraction   *SlackInteractionHandler
	slackSigningSecret string
}

type Options func(*Server)

// WithSlackInteraction mounts the Slack interactivity endpoint used for
// staff callout acknowledgements.
func WithSlackInteraction(handler *SlackInteractionHandler, signingSecret string) Options {
	return func(s *Server) {
		s.slackInteraction = handler
		s.slackSigningSecret = signingSecret
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		uc:       uc,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/mci", func(r chi.Router) {
		r.Use(requestContext)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.listEvents)
			r.Get("/active", s.getActiveEvent)
			r.Post("/activate", s.activateEvent)

			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", s.getEvent)
				r.Post("/escalate", s.escalateEvent)
				r.Post("/stabilize", s.stabilizeEvent)
				r.Post("/deactivate", s.deactivateEvent)
				r.Post("/close", s.closeEvent)
				r.Get("/dashboard", s.getDashboard)
				r.Get("/export", s.exportEvent)

				r.Get("/victims", s.listVictims)
				r.Post("/victims", s.registerVictim)
				r.Get("/victims/search", s.searchVictims)

				r.Get("/resources", s.listResources)
				r.Post("/resources/reserve", s.reserveResource)
				r.Post("/resources/release", s.releaseResource)
				r.Post("/resources/occupy", s.occupyResource)
				r.Post("/resources/adjust", s.adjustCapacity)

				r.Get("/activity", s.listActivity)
				r.Post("/activity", s.postUpdate)

				r.Get("/command", s.getRoster)
				r.Post("/command/assign", s.assignRole)

				r.Get("/inquiries", s.listInquiries)
				r.Post("/inquiries", s.registerInquiry)
			})
		})

		r.Route("/victims/{victimID}", func(r chi.Router) {
			r.Get("/", s.getVictim)
			r.Get("/notifications", s.listVictimNotifications)
			r.Post("/triage", s.triageVictim)
			r.Post("/retriage", s.retriageVictim)
			r.Post("/area", s.assignArea)
			r.Post("/staff", s.assignStaff)
			r.Post("/treatment", s.beginTreatment)
			r.Post("/vitals", s.recordVitals)
			r.Post("/disposition", s.setDisposition)
			r.Post("/notes", s.addNote)
			r.Post("/identify", s.identifyVictim)
		})

		r.Post("/notifications", s.enqueueNotification)
		r.Post("/notifications/{notificationID}/sent", s.markNotificationSent)
		r.Post("/notifications/{notificationID}/failed", s.markNotificationFailed)
		r.Post("/notifications/{notificationID}/acknowledge", s.acknowledgeCallout)

		r.Post("/inquiries/{inquiryID}/resolve", s.resolveInquiry)
	})

	// Slack verifies requests by signature, not by actor header
	if s.slackInteraction != nil {
		r.Route("/hooks/slack", func(r chi.Router) {
			r.Use(SlackSignatureMiddleware(s.slackSigningSecret))
			r.Post("/interaction", s.slackInteraction.ServeHTTP)
		})
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"actor", r.Header.Get(ActorHeader),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
