package flow

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

type fakeScheduler struct {
	slots     []engine.Slot
	created   []engine.CreateParams
	createErr error
}

func (f *fakeScheduler) FindAvailableSlots(_ context.Context, _, _ string, _ time.Time) ([]engine.Slot, error) {
	return f.slots, nil
}

func (f *fakeScheduler) Create(_ context.Context, p engine.CreateParams) (*model.Booking, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	return &model.Booking{
		ID:            "bk-1",
		TenantID:      p.TenantID,
		ServiceID:     p.ServiceID,
		ResourceID:    p.ResourceID,
		CustomerPhone: p.CustomerPhone,
		StartsAt:      p.StartsAt,
		EndsAt:        p.StartsAt.Add(30 * time.Minute),
		Status:        model.StatusConfirmed,
	}, nil
}

// Monday 2026-03-02, local times under UTC-4.
func localMonday(hour int) time.Time {
	return time.Date(2026, 3, 2, hour+4, 0, 0, 0, time.UTC)
}

func testSlots() []engine.Slot {
	return []engine.Slot{
		{ResourceID: "r1", ResourceName: "Maria", StartsAt: localMonday(9), EndsAt: localMonday(9).Add(30 * time.Minute)},
		{ResourceID: "r1", ResourceName: "Maria", StartsAt: localMonday(10), EndsAt: localMonday(10).Add(30 * time.Minute)},
	}
}

func TestAdvance_HappyPath(t *testing.T) {
	sched := &fakeScheduler{slots: testSlots()}
	m := NewMachine(sched, model.DefaultUTCOffsetMinutes)
	ctx := context.Background()

	r, err := m.Advance(ctx, "t1", "+1809", "Ana", State{}, Event{Type: EventStartBooking})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.State.Flow != FlowBooking || r.State.Step != StepSelectService {
		t.Fatalf("after start: %+v", r.State)
	}

	r, err = m.Advance(ctx, "t1", "+1809", "Ana", r.State, Event{Type: EventServiceProvided, ServiceID: "svc-1"})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if r.State.Step != StepSelectDate || r.State.ServiceID != "svc-1" {
		t.Fatalf("after service: %+v", r.State)
	}

	date := localMonday(0)
	r, err = m.Advance(ctx, "t1", "+1809", "Ana", r.State, Event{Type: EventDateProvided, Date: date})
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	if r.State.Step != StepSelectHour || len(r.State.Slots) != 2 {
		t.Fatalf("after date: %+v", r.State)
	}
	if !strings.Contains(r.Reply, "1) 09:00 con Maria") || !strings.Contains(r.Reply, "2) 10:00 con Maria") {
		t.Fatalf("slot list missing from reply:\n%s", r.Reply)
	}

	r, err = m.Advance(ctx, "t1", "+1809", "Ana", r.State, Event{Type: EventHourProvided, SlotIndex: 2})
	if err != nil {
		t.Fatalf("hour: %v", err)
	}
	if r.State.Step != StepDone || r.Booking == nil {
		t.Fatalf("after hour: state=%+v booking=%v", r.State, r.Booking)
	}
	if r.State.LastBookingID != "bk-1" {
		t.Fatalf("last booking id = %q", r.State.LastBookingID)
	}
	if len(sched.created) != 1 {
		t.Fatalf("created = %d, want 1", len(sched.created))
	}
	got := sched.created[0]
	if got.ResourceID != "r1" || !got.StartsAt.Equal(localMonday(10)) {
		t.Fatalf("created with %+v, want r1 at 10:00", got)
	}
	if !strings.Contains(r.Reply, "lunes 02/03 a las 10:00") {
		t.Fatalf("confirmation reply:\n%s", r.Reply)
	}
}

func TestAdvance_NeverMutatesInput(t *testing.T) {
	sched := &fakeScheduler{slots: testSlots()}
	m := NewMachine(sched, model.DefaultUTCOffsetMinutes)

	st := State{Flow: FlowBooking, Step: StepSelectDate, ServiceID: "svc-1"}
	before := st
	if _, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventDateProvided, Date: localMonday(0)}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !reflect.DeepEqual(st, before) {
		t.Fatalf("input state mutated: %+v != %+v", st, before)
	}
}

func TestAdvance_CancelResetsFromAnyStep(t *testing.T) {
	m := NewMachine(&fakeScheduler{}, model.DefaultUTCOffsetMinutes)
	states := []State{
		{},
		{Flow: FlowBooking, Step: StepSelectService},
		{Flow: FlowBooking, Step: StepSelectHour, ServiceID: "svc-1", Date: localMonday(0), Slots: testSlots()},
	}
	for i, st := range states {
		r, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventCancelFlow})
		if err != nil {
			t.Fatalf("state %d: %v", i, err)
		}
		if r.State.Flow != "" || r.State.Step != "" || len(r.State.Slots) != 0 {
			t.Fatalf("state %d not reset: %+v", i, r.State)
		}
	}
}

func TestAdvance_NoSlotsStaysOnDate(t *testing.T) {
	m := NewMachine(&fakeScheduler{}, model.DefaultUTCOffsetMinutes)
	st := State{Flow: FlowBooking, Step: StepSelectDate, ServiceID: "svc-1"}

	r, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventDateProvided, Date: localMonday(0)})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if r.State.Step != StepSelectDate {
		t.Fatalf("step = %q, want %q", r.State.Step, StepSelectDate)
	}
	if !strings.Contains(r.Reply, "otro día") {
		t.Fatalf("reply:\n%s", r.Reply)
	}
}

func TestAdvance_ConflictOffersOtherSlots(t *testing.T) {
	sched := &fakeScheduler{
		slots:     testSlots(),
		createErr: &engine.ConflictError{ResourceID: "r1"},
	}
	m := NewMachine(sched, model.DefaultUTCOffsetMinutes)
	st := State{Flow: FlowBooking, Step: StepSelectHour, ServiceID: "svc-1", Date: localMonday(0), Slots: testSlots()}

	r, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventHourProvided, SlotIndex: 1})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if r.State.Step != StepSelectHour || r.Booking != nil {
		t.Fatalf("after conflict: %+v", r.State)
	}
	if !strings.Contains(r.Reply, "ya no está disponible") {
		t.Fatalf("reply:\n%s", r.Reply)
	}
}

func TestAdvance_BadSlotIndexReprompts(t *testing.T) {
	m := NewMachine(&fakeScheduler{slots: testSlots()}, model.DefaultUTCOffsetMinutes)
	st := State{Flow: FlowBooking, Step: StepSelectHour, ServiceID: "svc-1", Date: localMonday(0), Slots: testSlots()}

	for _, idx := range []int{0, 3, -1} {
		r, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventHourProvided, SlotIndex: idx})
		if err != nil {
			t.Fatalf("index %d: %v", idx, err)
		}
		if r.State.Step != StepSelectHour || r.Booking != nil {
			t.Fatalf("index %d accepted: %+v", idx, r.State)
		}
	}

	// An explicit instant that matches a shown slot is accepted.
	r, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventHourProvided, StartsAt: localMonday(9)})
	if err != nil {
		t.Fatalf("explicit instant: %v", err)
	}
	if r.Booking == nil {
		t.Fatalf("explicit instant not accepted: %+v", r.State)
	}
}

func TestAdvance_LostStateRestarts(t *testing.T) {
	m := NewMachine(&fakeScheduler{}, model.DefaultUTCOffsetMinutes)
	st := State{Flow: FlowBooking, Step: StepSelectHour} // no service/date/slots

	r, err := m.Advance(context.Background(), "t1", "+1809", "", st, Event{Type: EventHourProvided, SlotIndex: 1})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if r.State.Step != StepSelectService {
		t.Fatalf("step = %q, want restart at %q", r.State.Step, StepSelectService)
	}
}
