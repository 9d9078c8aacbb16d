package booking

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/wolfman30/vetbot/internal/appointments"
)

var errUnavailable = errors.New("service unavailable")

type fakeScheduler struct {
	creates atomic.Int32
	fail    bool

	createFn func(ctx context.Context, d appointments.Draft) (*appointments.Appointment, error)
}

func (f *fakeScheduler) err() error {
	if f.fail {
		return errUnavailable
	}
	return nil
}

func (f *fakeScheduler) CreateAppointment(ctx context.Context, d appointments.Draft) (*appointments.Appointment, error) {
	f.creates.Add(1)
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return &appointments.Appointment{ID: "apt-1", Draft: d, Status: appointments.StatusPending}, nil
}

func (f *fakeScheduler) GetAppointment(_ context.Context, id string) (*appointments.Appointment, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.Appointment{ID: id}, nil
}

func (f *fakeScheduler) UpdateAppointment(_ context.Context, id string, d appointments.Draft) (*appointments.Appointment, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.Appointment{ID: id, Draft: d}, nil
}

func (f *fakeScheduler) UpdateStatus(_ context.Context, id string, s appointments.Status) (*appointments.Appointment, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.Appointment{ID: id, Status: s}, nil
}

func (f *fakeScheduler) CancelAppointment(_ context.Context, id, reason string) (*appointments.Appointment, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.Appointment{ID: id, Status: appointments.StatusCancelled, CancellationReason: reason}, nil
}

func (f *fakeScheduler) DeleteAppointment(context.Context, string) error { return f.err() }

func (f *fakeScheduler) ListAppointments(_ context.Context, opts appointments.ListOptions) (*appointments.Page, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.Page{
		Appointments: []appointments.Appointment{{ID: "a"}},
		Pagination:   appointments.Pagination{Page: opts.Page, Limit: opts.Limit, Total: 1, Pages: 1},
	}, nil
}

func (f *fakeScheduler) list() ([]appointments.Appointment, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return []appointments.Appointment{{ID: "a"}, {ID: "b"}}, nil
}

func (f *fakeScheduler) SessionAppointments(context.Context) ([]appointments.Appointment, error) {
	return f.list()
}
func (f *fakeScheduler) Today(context.Context) ([]appointments.Appointment, error) { return f.list() }
func (f *fakeScheduler) Upcoming(context.Context, int) ([]appointments.Appointment, error) {
	return f.list()
}
func (f *fakeScheduler) ByDate(context.Context, string) ([]appointments.Appointment, error) {
	return f.list()
}

func (f *fakeScheduler) Stats(context.Context) (*appointments.Stats, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.Stats{Total: 3, Pending: 2}, nil
}

func (f *fakeScheduler) AvailableDates(context.Context, int) ([]appointments.AvailableDate, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return []appointments.AvailableDate{{Date: "2026-03-02", Available: true, SlotsAvailable: 8}}, nil
}

func (f *fakeScheduler) AvailableSlots(_ context.Context, date string) (*appointments.SlotAvailability, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.SlotAvailability{Date: date, Slots: []appointments.Slot{{Time: "09:00", Available: true}}}, nil
}

func (f *fakeScheduler) Services(context.Context) (*appointments.ServiceCatalog, error) {
	if f.fail {
		return nil, errUnavailable
	}
	return &appointments.ServiceCatalog{Services: []appointments.Service{{ID: "checkup", Name: "General Checkup"}}}, nil
}
