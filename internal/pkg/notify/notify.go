// internal/pkg/notify/notify.go
package notify

// Event identifies a notification event type
type Event string

const (
	EventInventoryChanged   Event = "inventory.changed"
	EventOrderCreated       Event = "order.created"
	EventOrderStatusChanged Event = "order.statusChanged"
	EventFlashSaleStarted   Event = "flashSale.started"
	EventFlashSaleEnded     Event = "flashSale.ended"
)

// Sink delivers events to interested listeners. Delivery is fire-and-forget:
// implementations must never fail the originating business operation.
type Sink interface {
	Emit(event Event, payload interface{})
}

// NopSink discards all events
type NopSink struct{}

// Emit implements Sink
func (NopSink) Emit(Event, interface{}) {}
