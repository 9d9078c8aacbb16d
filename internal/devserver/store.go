package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/dateutil"
)

var (
	ErrSlotTaken = errors.New("devserver: slot already booked")
	ErrNotFound  = errors.New("devserver: appointment not found")
)

type turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// store keeps sessions and appointments in memory.
type store struct {
	mu           sync.Mutex
	now          func() time.Time
	slots        []string
	history      map[string][]turn
	appointments map[string]*appointments.Appointment
}

func newStore(now func() time.Time, slots []string) *store {
	return &store{
		now:          now,
		slots:        slots,
		history:      make(map[string][]turn),
		appointments: make(map[string]*appointments.Appointment),
	}
}

func (s *store) appendTurn(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sessionID] = append(s.history[sessionID], turn{Role: role, Content: content, Timestamp: s.now().UTC()})
}

func (s *store) turns(sessionID string, limit int) []turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[sessionID]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]turn, len(h))
	copy(out, h)
	return out
}

func (s *store) dropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, sessionID)
}

func active(a *appointments.Appointment) bool {
	return a.Status == appointments.StatusPending || a.Status == appointments.StatusConfirmed
}

func (s *store) slotTakenLocked(date, slot, exceptID string) bool {
	for _, a := range s.appointments {
		if a.ID != exceptID && active(a) && a.ScheduledDate == date && a.ScheduledTimeSlot == slot {
			return true
		}
	}
	return false
}

func (s *store) create(d appointments.Draft) (*appointments.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slotTakenLocked(d.ScheduledDate, d.ScheduledTimeSlot, "") {
		return nil, ErrSlotTaken
	}
	now := s.now().UTC()
	apt := &appointments.Appointment{
		ID:        uuid.NewString(),
		Draft:     d,
		Status:    appointments.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.appointments[apt.ID] = apt
	out := *apt
	return &out, nil
}

func (s *store) get(id string) (*appointments.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *a
	return &out, nil
}

// update applies mutate to a copy and stores it when mutate succeeds.
func (s *store) update(id string, mutate func(a *appointments.Appointment) error) (*appointments.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := *a
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if active(&next) && s.slotTakenLocked(next.ScheduledDate, next.ScheduledTimeSlot, id) {
		return nil, ErrSlotTaken
	}
	next.UpdatedAt = s.now().UTC()
	s.appointments[id] = &next
	out := next
	return &out, nil
}

func (s *store) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

// filter returns copies of the appointments matching keep, sorted by date and slot.
func (s *store) filter(keep func(a *appointments.Appointment) bool) []appointments.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]appointments.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate != out[j].ScheduledDate {
			return out[i].ScheduledDate < out[j].ScheduledDate
		}
		if out[i].ScheduledTimeSlot != out[j].ScheduledTimeSlot {
			return out[i].ScheduledTimeSlot < out[j].ScheduledTimeSlot
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *store) today() string {
	return dateutil.FormatForAPI(s.now())
}

func (s *store) stats() appointments.Stats {
	today := s.today()
	all := s.filter(func(*appointments.Appointment) bool { return true })
	st := appointments.Stats{Total: len(all)}
	for i := range all {
		a := &all[i]
		if a.ScheduledDate == today {
			st.Today++
		}
		if a.ScheduledDate >= today && active(a) {
			st.Upcoming++
		}
		switch a.Status {
		case appointments.StatusPending:
			st.Pending++
		case appointments.StatusConfirmed:
			st.Confirmed++
		case appointments.StatusCancelled:
			st.Cancelled++
		case appointments.StatusCompleted:
			st.Completed++
		}
	}
	return st
}

// slotsFor lists every slot of date with its availability. Past dates have none open.
func (s *store) slotsFor(date string) []appointments.Slot {
	past := date < s.today()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]appointments.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, appointments.Slot{Time: slot, Available: !past && !s.slotTakenLocked(date, slot, "")})
	}
	return out
}

func matchesSearch(a *appointments.Appointment, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, v := range []string{a.OwnerName, a.PetName, a.Phone, a.Email} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
