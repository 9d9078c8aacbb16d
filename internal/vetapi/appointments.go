package vetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfman30/vetbot/internal/appointments"
)

// CreateAppointment submits a draft. The current session id is attached when the
// draft carries none.
func (c *Client) CreateAppointment(ctx context.Context, draft appointments.Draft) (*appointments.Appointment, error) {
	if draft.SessionID == "" {
		draft.SessionID = c.meta.SessionID(ctx)
	}
	var raw json.RawMessage
	if err := c.doRequest(ctx, "appointments.create", http.MethodPost, "/appointments", nil, draft, &raw); err != nil {
		return nil, err
	}
	apt, err := decodeAppointment(raw)
	if err != nil {
		return nil, err
	}
	if apt == nil {
		apt = &appointments.Appointment{Draft: draft, Status: appointments.StatusPending}
	}
	return apt, nil
}

// GetAppointment loads one appointment.
func (c *Client) GetAppointment(ctx context.Context, id string) (*appointments.Appointment, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, "appointments.get", http.MethodGet, appointmentPath(id, ""), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// UpdateAppointment replaces the editable fields of an appointment.
func (c *Client) UpdateAppointment(ctx context.Context, id string, draft appointments.Draft) (*appointments.Appointment, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, "appointments.update", http.MethodPut, appointmentPath(id, ""), nil, draft, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// UpdateStatus changes an appointment's status (operator action).
func (c *Client) UpdateStatus(ctx context.Context, id string, status appointments.Status) (*appointments.Appointment, error) {
	var raw json.RawMessage
	payload := map[string]string{"status": string(status)}
	if err := c.doRequest(ctx, "appointments.status", http.MethodPatch, appointmentPath(id, "/status"), nil, payload, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// CancelAppointment cancels an appointment with an optional reason.
func (c *Client) CancelAppointment(ctx context.Context, id, reason string) (*appointments.Appointment, error) {
	var raw json.RawMessage
	payload := map[string]string{"reason": reason}
	if err := c.doRequest(ctx, "appointments.cancel", http.MethodPatch, appointmentPath(id, "/cancel"), nil, payload, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// DeleteAppointment removes an appointment (operator action).
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.doRequest(ctx, "appointments.delete", http.MethodDelete, appointmentPath(id, ""), nil, nil, nil)
}

// ListAppointments returns a filtered page for the operator view.
func (c *Client) ListAppointments(ctx context.Context, opts appointments.ListOptions) (*appointments.Page, error) {
	opts = opts.WithDefaults()
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("sortBy", opts.SortBy)
	q.Set("sortOrder", opts.SortOrder)
	setIf(q, "status", string(opts.Status))
	setIf(q, "date", opts.Date)
	setIf(q, "startDate", opts.StartDate)
	setIf(q, "endDate", opts.EndDate)
	setIf(q, "search", opts.Search)

	var raw json.RawMessage
	if err := c.doRequest(ctx, "appointments.list", http.MethodGet, "/appointments", q, nil, &raw); err != nil {
		return nil, err
	}
	list, err := decodeList[appointments.Appointment](raw, "appointments")
	if err != nil {
		return nil, fmt.Errorf("vetapi: appointments.list: %w", err)
	}
	page := &appointments.Page{Appointments: list}
	var withPaging struct {
		Pagination appointments.Pagination `json:"pagination"`
	}
	if json.Unmarshal(raw, &withPaging) == nil {
		page.Pagination = withPaging.Pagination
	}
	return page, nil
}

// SessionAppointments lists appointments booked from the current session.
func (c *Client) SessionAppointments(ctx context.Context) ([]appointments.Appointment, error) {
	path := fmt.Sprintf("/appointments/session/%s", url.PathEscape(c.meta.SessionID(ctx)))
	return c.appointmentList(ctx, "appointments.session", path, nil)
}

// Today lists today's appointments.
func (c *Client) Today(ctx context.Context) ([]appointments.Appointment, error) {
	return c.appointmentList(ctx, "appointments.today", "/appointments/today", nil)
}

// Upcoming lists the next limit appointments.
func (c *Client) Upcoming(ctx context.Context, limit int) ([]appointments.Appointment, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.appointmentList(ctx, "appointments.upcoming", "/appointments/upcoming", q)
}

// ByDate lists appointments on a yyyy-MM-dd date.
func (c *Client) ByDate(ctx context.Context, date string) ([]appointments.Appointment, error) {
	return c.appointmentList(ctx, "appointments.by_date", "/appointments/date/"+url.PathEscape(date), nil)
}

// Stats returns dashboard counters.
func (c *Client) Stats(ctx context.Context) (*appointments.Stats, error) {
	var out appointments.Stats
	if err := c.doRequest(ctx, "appointments.stats", http.MethodGet, "/appointments/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailableDates lists bookable days for the next days days.
func (c *Client) AvailableDates(ctx context.Context, days int) ([]appointments.AvailableDate, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var raw json.RawMessage
	if err := c.doRequest(ctx, "appointments.available_dates", http.MethodGet, "/appointments/available-dates", q, nil, &raw); err != nil {
		return nil, err
	}
	dates, err := decodeList[appointments.AvailableDate](raw, "dates")
	if err != nil {
		return nil, fmt.Errorf("vetapi: appointments.available_dates: %w", err)
	}
	return dates, nil
}

// AvailableSlots lists time slots for a yyyy-MM-dd date.
func (c *Client) AvailableSlots(ctx context.Context, date string) (*appointments.SlotAvailability, error) {
	var out appointments.SlotAvailability
	path := "/appointments/available-slots/" + url.PathEscape(date)
	if err := c.doRequest(ctx, "appointments.available_slots", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Date == "" {
		out.Date = date
	}
	return &out, nil
}

// Services returns the service catalog and accepted pet types.
func (c *Client) Services(ctx context.Context) (*appointments.ServiceCatalog, error) {
	var out appointments.ServiceCatalog
	if err := c.doRequest(ctx, "appointments.services", http.MethodGet, "/appointments/services", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) appointmentList(ctx context.Context, op, path string, q url.Values) ([]appointments.Appointment, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, op, http.MethodGet, path, q, nil, &raw); err != nil {
		return nil, err
	}
	list, err := decodeList[appointments.Appointment](raw, "appointments")
	if err != nil {
		return nil, fmt.Errorf("vetapi: %s: %w", op, err)
	}
	return list, nil
}

func appointmentPath(id, suffix string) string {
	return "/appointments/" + url.PathEscape(id) + suffix
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// decodeAppointment accepts the appointment itself or {appointment: {...}}.
// An empty payload decodes to nil.
func decodeAppointment(raw json.RawMessage) (*appointments.Appointment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wrapped struct {
		Appointment *appointments.Appointment `json:"appointment"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Appointment != nil {
		return wrapped.Appointment, nil
	}
	var apt appointments.Appointment
	if err := json.Unmarshal(raw, &apt); err != nil {
		return nil, fmt.Errorf("vetapi: decode appointment: %w", err)
	}
	return &apt, nil
}

// decodeList accepts a bare JSON array or an object holding the array under key.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []T{}, nil
	}
	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	inner, ok := obj[key]
	if !ok {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
