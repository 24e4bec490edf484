package webhook

import (
	"sync"

	"github.com/causekit/CauseLedger/app/models"
)

// Handler turns a raw, signature-verified payload into a normalized event.
type Handler func(raw []byte) (*NormalizedEvent, error)

// Registry maps (source, event type) pairs to handlers. Unknown pairs are
// not errors: providers introduce event types over time and deliveries of
// types we don't consume must be acknowledged, not rejected.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a (source, event type) pair. The last
// registration for a pair wins.
func (r *Registry) Register(source, eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[source+"|"+eventType] = h
}

// Lookup returns the handler for a pair, or ok=false when the event type is
// not consumed.
func (r *Registry) Lookup(source, eventType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[source+"|"+eventType]
	return h, ok
}

// DefaultRegistry builds the registry with every event type the service
// consumes today. Adding a provider or event type means adding a line here,
// nothing in the dispatch path changes.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(models.SourceCourseHub, CourseHubOrderCreated, ParseCourseHubOrder(CourseHubOrderCreated))
	r.Register(models.SourceCourseHub, CourseHubOrderRefunded, ParseCourseHubOrder(CourseHubOrderRefunded))
	r.Register(models.SourceCourseHub, CourseHubEnrollmentCreated, ParseCourseHubEnrollment)
	r.Register(models.SourceCourseHub, CourseHubTagAdded, ParseCourseHubTag)

	r.Register(models.SourcePayflow, PayflowChargeSucceeded, ParsePayflowCharge(PayflowChargeSucceeded))
	r.Register(models.SourcePayflow, PayflowChargeRefunded, ParsePayflowCharge(PayflowChargeRefunded))
	r.Register(models.SourcePayflow, PayflowSubscriptionUpdated, ParsePayflowSubscription)

	r.Register(models.SourceTixbee, TixbeeTicketCompleted, ParseTixbeeOrder(TixbeeTicketCompleted))
	r.Register(models.SourceTixbee, TixbeeOrderRefunded, ParseTixbeeOrder(TixbeeOrderRefunded))
	r.Register(models.SourceTixbee, TixbeeAttendeeCheckedIn, ParseTixbeeCheckin)

	return r
}
