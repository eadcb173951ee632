// AngelaMos | 2026
// handler.go

package webhook

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/metrics"
	"github.com/denemeapp/kpss-backend/internal/payment"
)

const maxPayloadBytes = 1 << 20

type Ack struct {
	OK      bool     `json:"ok"`
	Ignored bool     `json:"ignored,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

type Handler struct {
	reconciler *Reconciler
	provider   payment.Provider
	header     string
}

// NewHandler serves provider callbacks. header names the request header
// carrying the provider signature.
func NewHandler(reconciler *Reconciler, provider payment.Provider, header string) *Handler {
	return &Handler{
		reconciler: reconciler,
		provider:   provider,
		header:     header,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/"+h.provider.Name(), h.Receive)
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := "error"
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		status = "rejected"
		core.BadRequest(w, "unreadable payload")
		return
	}

	event, err := h.provider.ParseWebhook(r.Context(), payload, r.Header.Get(h.header))
	if err != nil {
		status = "rejected"
		core.SetSpanError(r.Context(), err)
		if errors.Is(err, payment.ErrInvalidSignature) {
			core.Unauthorized(w, "invalid signature")
			return
		}
		core.BadRequest(w, "malformed payload")
		return
	}
	eventType = event.ProviderEvent

	if event.Type != payment.EventPaymentCompleted {
		status = "ignored"
		core.AddSpanEvent(r.Context(), "webhook.ignored",
			attribute.String("provider_event", event.ProviderEvent),
		)
		core.JSON(w, http.StatusOK, Ack{OK: true, Ignored: true})
		return
	}

	outcome, err := h.reconciler.Reconcile(r.Context(), event.OrderID, event.ProviderRef)
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}

	status = "processed"
	if outcome.AlreadyPaid {
		status = "duplicate"
	}
	core.JSON(w, http.StatusOK, Ack{OK: true, Outcome: outcome})
}
