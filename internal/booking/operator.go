package booking

import (
	"context"

	"github.com/wolfman30/vetbot/internal/appointments"
)

// Loading reports whether any operator fetch is outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
}

func (c *Controller) end() {
	c.mu.Lock()
	c.loading--
	c.mu.Unlock()
}

// fetch runs call with the shared loading counter held and logs failures.
// It reports whether call succeeded.
func fetch[T any](c *Controller, op string, call func() (T, error)) (T, bool) {
	c.begin()
	defer c.end()
	out, err := call()
	if err != nil {
		c.logger.Warn("booking: fetch failed", "operation", op, "error", err)
		var zero T
		return zero, false
	}
	return out, true
}

// fetchList is fetch for list results: failures and nil lists become empty lists.
func fetchList[T any](c *Controller, op string, call func() ([]T, error)) []T {
	list, ok := fetch(c, op, call)
	if !ok || list == nil {
		return []T{}
	}
	return list
}

// Services returns the service catalog, or nil on failure.
func (c *Controller) Services(ctx context.Context) *appointments.ServiceCatalog {
	out, _ := fetch(c, "services", func() (*appointments.ServiceCatalog, error) {
		return c.api.Services(ctx)
	})
	return out
}

// AvailableDates returns bookable days, or an empty list on failure.
func (c *Controller) AvailableDates(ctx context.Context, days int) []appointments.AvailableDate {
	return fetchList(c, "available_dates", func() ([]appointments.AvailableDate, error) {
		return c.api.AvailableDates(ctx, days)
	})
}

// AvailableSlots returns the slots of a yyyy-MM-dd date, or nil on failure.
func (c *Controller) AvailableSlots(ctx context.Context, date string) *appointments.SlotAvailability {
	out, _ := fetch(c, "available_slots", func() (*appointments.SlotAvailability, error) {
		return c.api.AvailableSlots(ctx, date)
	})
	return out
}

// Appointments returns a filtered page, or nil on failure.
func (c *Controller) Appointments(ctx context.Context, opts appointments.ListOptions) *appointments.Page {
	out, _ := fetch(c, "list", func() (*appointments.Page, error) {
		return c.api.ListAppointments(ctx, opts)
	})
	return out
}

// Appointment loads one appointment, or nil on failure.
func (c *Controller) Appointment(ctx context.Context, id string) *appointments.Appointment {
	out, _ := fetch(c, "get", func() (*appointments.Appointment, error) {
		return c.api.GetAppointment(ctx, id)
	})
	return out
}

func (c *Controller) SessionAppointments(ctx context.Context) []appointments.Appointment {
	return fetchList(c, "session", func() ([]appointments.Appointment, error) {
		return c.api.SessionAppointments(ctx)
	})
}

func (c *Controller) Today(ctx context.Context) []appointments.Appointment {
	return fetchList(c, "today", func() ([]appointments.Appointment, error) {
		return c.api.Today(ctx)
	})
}

func (c *Controller) Upcoming(ctx context.Context, limit int) []appointments.Appointment {
	return fetchList(c, "upcoming", func() ([]appointments.Appointment, error) {
		return c.api.Upcoming(ctx, limit)
	})
}

func (c *Controller) ByDate(ctx context.Context, date string) []appointments.Appointment {
	return fetchList(c, "by_date", func() ([]appointments.Appointment, error) {
		return c.api.ByDate(ctx, date)
	})
}

// Stats returns dashboard counters, or nil on failure.
func (c *Controller) Stats(ctx context.Context) *appointments.Stats {
	out, _ := fetch(c, "stats", func() (*appointments.Stats, error) {
		return c.api.Stats(ctx)
	})
	return out
}

// UpdateStatus changes an appointment's status. The appointment may be nil
// even on success when the service returns no body.
func (c *Controller) UpdateStatus(ctx context.Context, id string, status appointments.Status) (*appointments.Appointment, bool) {
	return fetch(c, "update_status", func() (*appointments.Appointment, error) {
		return c.api.UpdateStatus(ctx, id, status)
	})
}

func (c *Controller) CancelAppointment(ctx context.Context, id, reason string) (*appointments.Appointment, bool) {
	return fetch(c, "cancel", func() (*appointments.Appointment, error) {
		return c.api.CancelAppointment(ctx, id, reason)
	})
}

func (c *Controller) UpdateAppointment(ctx context.Context, id string, draft appointments.Draft) (*appointments.Appointment, bool) {
	return fetch(c, "update", func() (*appointments.Appointment, error) {
		return c.api.UpdateAppointment(ctx, id, draft)
	})
}

// DeleteAppointment reports whether the appointment was removed.
func (c *Controller) DeleteAppointment(ctx context.Context, id string) bool {
	_, ok := fetch(c, "delete", func() (struct{}, error) {
		return struct{}{}, c.api.DeleteAppointment(ctx, id)
	})
	return ok
}
