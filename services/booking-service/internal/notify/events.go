package notify

import (
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

// Event names, as consumed by the template/delivery collaborator. The engine
// only decides when to notify and with which variables; rendering and sending
// happen downstream.
const (
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingRescheduled = "booking_rescheduled"
	EventBookingCancelled   = "booking_cancelled"
	EventReminder           = "reminder"
	EventPaymentRequired    = "payment_required"
)

const DefaultChannel = "whatsapp"

// Event is the abstract booking-event message handed to the notification
// collaborator through the transactional outbox.
type Event struct {
	TenantID  string            `json:"tenant_id"`
	Event     string            `json:"event"`
	Channel   string            `json:"channel"`
	Recipient string            `json:"recipient"`
	Variables map[string]string `json:"variables"`
}

// Topic maps an event name to its Kafka topic. One topic per event type.
func Topic(event string) string {
	switch event {
	case EventBookingConfirmed:
		return "booking.confirmed.v1"
	case EventBookingRescheduled:
		return "booking.rescheduled.v1"
	case EventBookingCancelled:
		return "booking.cancelled.v1"
	case EventReminder:
		return "booking.reminder.v1"
	case EventPaymentRequired:
		return "booking.payment_required.v1"
	default:
		return "booking.event.v1"
	}
}

func Confirmed(b model.Booking, resourceName string, offsetMinutes int) Event {
	return Event{
		TenantID:  b.TenantID,
		Event:     EventBookingConfirmed,
		Channel:   DefaultChannel,
		Recipient: b.CustomerPhone,
		Variables: bookingVars(b, resourceName, offsetMinutes),
	}
}

func Rescheduled(b model.Booking, resourceName string, offsetMinutes int) Event {
	return Event{
		TenantID:  b.TenantID,
		Event:     EventBookingRescheduled,
		Channel:   DefaultChannel,
		Recipient: b.CustomerPhone,
		Variables: bookingVars(b, resourceName, offsetMinutes),
	}
}

func Cancelled(b model.Booking, resourceName string, offsetMinutes int) Event {
	return Event{
		TenantID:  b.TenantID,
		Event:     EventBookingCancelled,
		Channel:   DefaultChannel,
		Recipient: b.CustomerPhone,
		Variables: bookingVars(b, resourceName, offsetMinutes),
	}
}

func Reminder(b model.Booking, resourceName string, offsetMinutes int) Event {
	return Event{
		TenantID:  b.TenantID,
		Event:     EventReminder,
		Channel:   DefaultChannel,
		Recipient: b.CustomerPhone,
		Variables: bookingVars(b, resourceName, offsetMinutes),
	}
}

func PaymentRequired(b model.Booking, paymentLink string, offsetMinutes int) Event {
	vars := bookingVars(b, "", offsetMinutes)
	vars["payment_link"] = paymentLink
	return Event{
		TenantID:  b.TenantID,
		Event:     EventPaymentRequired,
		Channel:   DefaultChannel,
		Recipient: b.CustomerPhone,
		Variables: vars,
	}
}

// bookingVars formats the template variables in the tenant's local wall clock
// (dd/mm/yyyy and 24h time, the es-DO convention).
func bookingVars(b model.Booking, resourceName string, offsetMinutes int) map[string]string {
	local := b.StartsAt.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
	vars := map[string]string{
		"customer_name": b.CustomerName,
		"date":          local.Format("02/01/2006"),
		"time":          local.Format("15:04"),
	}
	if resourceName != "" {
		vars["resource_name"] = resourceName
	}
	return vars
}
