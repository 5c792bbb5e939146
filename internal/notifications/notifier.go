package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/logger"
	"github.com/Icecubesaad/cura-backend/pkg/metrics"
)

const publishTimeout = 10 * time.Second

// Event types emitted by the workflow core.
const (
	EventPrescriptionSubmitted = "prescription.submitted"
	EventPrescriptionClaimed   = "prescription.claimed"
	EventPrescriptionDecided   = "prescription.decided"
	EventPrescriptionCancelled = "prescription.cancelled"
	EventOrderCreated          = "order.created"
	EventOrderPaid             = "order.paid"
	EventOrderStatusChanged    = "order.status_changed"
	EventOrderCancelled        = "order.cancelled"
	EventReturnRequested       = "return.requested"
	EventReturnProcessed       = "return.processed"
)

// Event is one notification published to downstream channels. Audience names
// the delivery target; payload carries the event-specific fields.
type Event struct {
	Type     string         `json:"type"`
	Audience string         `json:"audience"`
	Payload  map[string]any `json:"payload,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// AudienceReviewers targets the shared reviewer pool.
const AudienceReviewers = "reviewers"

// AudienceAdmin targets platform operators.
const AudienceAdmin = "admin"

// AudienceCustomer targets a single customer.
func AudienceCustomer(id uuid.UUID) string {
	return fmt.Sprintf("customer:%s", id)
}

// AudienceFulfiller targets a single pharmacy or vendor.
func AudienceFulfiller(id uuid.UUID) string {
	return fmt.Sprintf("fulfiller:%s", id)
}

// Notifier delivers workflow events to interested parties. Delivery is best
// effort: implementations must never block the caller's request path or
// surface delivery failures to it.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

type pubsubNotifier struct {
	pub     publisher
	logg    *logger.Logger
	metrics *metrics.WorkflowMetrics
}

// NewPubSubNotifier wires a Notifier that publishes events on a Pub/Sub topic.
func NewPubSubNotifier(pub *pubsub.Publisher, logg *logger.Logger, wm *metrics.WorkflowMetrics) (Notifier, error) {
	if pub == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &pubsubNotifier{pub: pub, logg: logg, metrics: wm}, nil
}

// Notify publishes the event on a detached goroutine. Failures are logged and
// counted, never returned.
func (n *pubsubNotifier) Notify(ctx context.Context, event Event) {
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		publishCtx, cancel := context.WithTimeout(detached, publishTimeout)
		defer cancel()

		if err := n.publish(publishCtx, event); err != nil {
			n.metrics.IncNotification(event.Type, "failed")
			fields := map[string]any{
				"event_type": event.Type,
				"audience":   event.Audience,
			}
			n.logg.Error(n.logg.WithFields(publishCtx, fields), "notification publish failed", err)
			return
		}
		n.metrics.IncNotification(event.Type, "published")
	}()
}

func (n *pubsubNotifier) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": event.Type,
			"audience":   event.Audience,
			"sent_at":    event.SentAt.Format(time.RFC3339Nano),
		},
	}

	result := n.pub.Publish(ctx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil result")
	}
	if _, err := result.Get(ctx); err != nil {
		return err
	}
	return nil
}
