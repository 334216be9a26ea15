package domain

// Topics carried by the in-process event bus.
const (
	TopicOrderStatusChanged    = "order.statusChanged"
	TopicOrderPaymentConfirmed = "order.paymentConfirmed"
	TopicNotificationEmail     = "notification.email"
)

// StatusChangeEvent is published once the new status has been committed.
type StatusChangeEvent struct {
	OrderID        string      `json:"order_id"`
	OldStatus      OrderStatus `json:"old_status"`
	NewStatus      OrderStatus `json:"new_status"`
	TrackingNumber *string     `json:"tracking_number,omitempty"`
}

// Tracking returns the tracking number or an empty string.
func (e StatusChangeEvent) Tracking() string {
	if e.TrackingNumber == nil {
		return ""
	}
	return *e.TrackingNumber
}

// PaymentConfirmedEvent signals that an order has been paid for and can be shipped.
type PaymentConfirmedEvent struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

// NotificationRequest asks the notification sender to deliver a templated message.
type NotificationRequest struct {
	To      string           `json:"to"`
	Kind    NotificationKind `json:"kind"`
	Context map[string]any   `json:"context"`
}

// Keys used in NotificationRequest.Context.
const (
	ContextFirstName         = "firstName"
	ContextLastName          = "lastName"
	ContextOrderID           = "orderId"
	ContextTrackingReference = "trackingReference"
	ContextPreviousStatus    = "previousStatus"
	ContextNewStatus         = "newStatus"
	ContextStatusDescription = "statusDescription"
)
