package listeners

import (
	"github.com/dejobratic/orderflow/internal/eventbus"
	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// Subscriptions is the complete order pipeline subscriber graph, registered once at startup.
func Subscriptions(
	dispatcher *NotificationDispatcher,
	carrier *CarrierSubmissionListener,
	relay *NotificationRelay,
) []eventbus.Subscription {
	return []eventbus.Subscription{
		{Topic: domain.TopicOrderStatusChanged, Name: "notification_dispatcher", Handler: dispatcher},
		{Topic: domain.TopicOrderPaymentConfirmed, Name: "carrier_submission", Handler: carrier},
		{Topic: domain.TopicNotificationEmail, Name: "notification_relay", Handler: relay},
	}
}
