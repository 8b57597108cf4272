// Package flow drives the conversational booking flow. It knows nothing
// about WhatsApp or the NLU layer: it receives already-interpreted events,
// consults the scheduling engine, and returns the next session state plus the
// reply text. State values are immutable; Advance never mutates its input.
package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

const FlowBooking = "BOOKING"

// Steps of the booking flow.
const (
	StepSelectService = "SELECT_SERVICE"
	StepSelectDate    = "SELECT_DATE"
	StepSelectHour    = "SELECT_HOUR"
	StepDone          = "DONE"
)

// Event types produced by the upstream NLU layer.
const (
	EventStartBooking    = "START_BOOKING"
	EventServiceProvided = "SERVICE_PROVIDED"
	EventDateProvided    = "DATE_PROVIDED"
	EventHourProvided    = "HOUR_PROVIDED"
	EventCancelFlow      = "CANCEL_FLOW"
)

// State is the conversation session snapshot persisted between turns. The
// zero value is "no flow in progress".
type State struct {
	Flow          string        `json:"flow,omitempty"`
	Step          string        `json:"step,omitempty"`
	ServiceID     string        `json:"service_id,omitempty"`
	Date          time.Time     `json:"date,omitempty"`
	Slots         []engine.Slot `json:"slots,omitempty"`
	LastBookingID string        `json:"last_booking_id,omitempty"`
}

// Event is one interpreted user turn.
type Event struct {
	Type      string
	ServiceID string    // SERVICE_PROVIDED
	Date      time.Time // DATE_PROVIDED: local midnight as absolute instant
	SlotIndex int       // HOUR_PROVIDED: 1-based index into the shown slots
	StartsAt  time.Time // HOUR_PROVIDED: explicit start, overrides SlotIndex
}

// Result is what one turn yields: the state to persist, the reply for the
// user, and the booking when one was created this turn.
type Result struct {
	State   State
	Reply   string
	Slots   []engine.Slot
	Booking *model.Booking
}

// Scheduler is the slice of the engine the flow needs.
type Scheduler interface {
	FindAvailableSlots(ctx context.Context, tenantID, serviceID string, date time.Time) ([]engine.Slot, error)
	Create(ctx context.Context, p engine.CreateParams) (*model.Booking, error)
}

// Machine advances booking conversations. offsetMinutes is the tenant's
// fixed UTC offset, used only to render times in the replies.
type Machine struct {
	scheduler     Scheduler
	offsetMinutes int
}

func NewMachine(s Scheduler, offsetMinutes int) *Machine {
	return &Machine{scheduler: s, offsetMinutes: offsetMinutes}
}

// Advance applies one event to the session and returns the next state plus
// the reply. Storage failures come back as errors; everything the user can
// fix themselves (unknown slot, full day, lost state) comes back as a reply.
func (m *Machine) Advance(ctx context.Context, tenantID, customerPhone, customerName string, st State, ev Event) (Result, error) {
	if ev.Type == EventCancelFlow {
		return Result{
			State: State{},
			Reply: "Perfecto, cancelamos el proceso de agendar. Si quieres, lo intentamos de nuevo más tarde.",
		}, nil
	}

	switch ev.Type {
	case EventStartBooking:
		return Result{
			State: State{Flow: FlowBooking, Step: StepSelectService},
			Reply: "Perfecto, vamos a agendar una cita. ¿Qué servicio quieres?",
		}, nil

	case EventServiceProvided:
		if ev.ServiceID == "" {
			next := st
			next.Flow = FlowBooking
			next.Step = StepSelectService
			return Result{
				State: next,
				Reply: "No me quedó claro el servicio. ¿Me recuerdas cuál quieres?",
			}, nil
		}
		next := st
		next.Flow = FlowBooking
		next.ServiceID = ev.ServiceID
		next.Step = StepSelectDate
		return Result{
			State: next,
			Reply: "Genial. ¿Para qué día quieres la cita? Puedes decir: hoy, mañana o una fecha específica.",
		}, nil

	case EventDateProvided:
		return m.onDate(ctx, tenantID, st, ev)

	case EventHourProvided:
		return m.onHour(ctx, tenantID, customerPhone, customerName, st, ev)

	default:
		return Result{
			State: st,
			Reply: "No entendí bien lo que quisiste hacer con tu cita. Puedes decirme algo como: quiero agendar un corte para mañana.",
		}, nil
	}
}

func (m *Machine) onDate(ctx context.Context, tenantID string, st State, ev Event) (Result, error) {
	serviceID := st.ServiceID
	if serviceID == "" {
		serviceID = ev.ServiceID
	}
	if serviceID == "" {
		next := st
		next.Flow = FlowBooking
		next.Step = StepSelectService
		return Result{
			State: next,
			Reply: "Antes de la fecha necesito saber el servicio. ¿Cuál quieres?",
		}, nil
	}
	if ev.Date.IsZero() {
		next := st
		next.Flow = FlowBooking
		next.Step = StepSelectDate
		return Result{
			State: next,
			Reply: "No pude entender la fecha. ¿Para qué día la quieres?",
		}, nil
	}

	slots, err := m.scheduler.FindAvailableSlots(ctx, tenantID, serviceID, ev.Date)
	if err != nil {
		return Result{}, err
	}
	if len(slots) == 0 {
		next := st
		next.Flow = FlowBooking
		next.ServiceID = serviceID
		next.Step = StepSelectDate
		return Result{
			State: next,
			Reply: "Ese día no tengo horarios disponibles. ¿Te sirve otro día?",
		}, nil
	}

	next := State{
		Flow:      FlowBooking,
		Step:      StepSelectHour,
		ServiceID: serviceID,
		Date:      ev.Date,
		Slots:     slots,
	}
	return Result{
		State: next,
		Reply: "Perfecto. Para ese día tengo estos horarios disponibles:\n\n" +
			m.slotList(slots) +
			"\n\nResponde con el número del horario que prefieres.",
		Slots: slots,
	}, nil
}

func (m *Machine) onHour(ctx context.Context, tenantID, customerPhone, customerName string, st State, ev Event) (Result, error) {
	if st.ServiceID == "" || st.Date.IsZero() || len(st.Slots) == 0 {
		// The session lost something essential, restart from the top.
		return Result{
			State: State{Flow: FlowBooking, Step: StepSelectService},
			Reply: "Parece que perdimos un dato de la cita. Vamos a intentarlo de nuevo. ¿Qué servicio quieres agendar?",
		}, nil
	}

	chosen, ok := m.chooseSlot(st.Slots, ev)
	if !ok {
		next := st
		next.Step = StepSelectHour
		return Result{
			State: next,
			Reply: "No entendí qué horario elegiste. Estos son los horarios disponibles:\n\n" +
				m.slotList(st.Slots) +
				"\n\nResponde con el número del horario que prefieres.",
		}, nil
	}

	b, err := m.scheduler.Create(ctx, engine.CreateParams{
		TenantID:      tenantID,
		ServiceID:     st.ServiceID,
		ResourceID:    chosen.ResourceID,
		CustomerPhone: customerPhone,
		CustomerName:  customerName,
		StartsAt:      chosen.StartsAt,
	})
	if err != nil {
		if engine.IsConflict(err) {
			next := st
			next.Step = StepSelectHour
			return Result{
				State: next,
				Reply: "Ese horario ya no está disponible. Intenta elegir otro de los horarios disponibles:\n\n" +
					m.slotList(st.Slots),
			}, nil
		}
		return Result{}, err
	}

	return Result{
		State:   State{Step: StepDone, LastBookingID: b.ID},
		Reply:   fmt.Sprintf("Listo, tu cita quedó agendada para el %s. Si más adelante quieres cambiarla o cancelarla, solo dime y lo hacemos por aquí.", m.whenLabel(b.StartsAt)),
		Booking: b,
	}, nil
}

// chooseSlot resolves the user's pick: an explicit start instant wins, then a
// 1-based index into the shown list.
func (m *Machine) chooseSlot(slots []engine.Slot, ev Event) (engine.Slot, bool) {
	if !ev.StartsAt.IsZero() {
		for _, s := range slots {
			if s.StartsAt.Equal(ev.StartsAt) {
				return s, true
			}
		}
		return engine.Slot{}, false
	}
	if ev.SlotIndex >= 1 && ev.SlotIndex <= len(slots) {
		return slots[ev.SlotIndex-1], true
	}
	return engine.Slot{}, false
}

func (m *Machine) slotList(slots []engine.Slot) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d) %s", i+1, m.slotLabel(s))
	}
	return b.String()
}

func (m *Machine) slotLabel(s engine.Slot) string {
	local := s.StartsAt.UTC().Add(time.Duration(m.offsetMinutes) * time.Minute)
	if s.ResourceName != "" {
		return fmt.Sprintf("%s con %s", local.Format("15:04"), s.ResourceName)
	}
	return local.Format("15:04")
}

var spanishWeekdays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

func (m *Machine) whenLabel(t time.Time) string {
	local := t.UTC().Add(time.Duration(m.offsetMinutes) * time.Minute)
	return fmt.Sprintf("%s %s a las %s",
		spanishWeekdays[int(local.Weekday())],
		local.Format("02/01"),
		local.Format("15:04"))
}
