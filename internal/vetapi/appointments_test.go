package vetapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetbot/internal/appointments"
)

func TestCreateAppointment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/appointments", r.URL.Path)
		var d appointments.Draft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		assert.Equal(t, "session_test", d.SessionID)
		assert.Equal(t, "Rex", d.PetName)
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"appointment":{"_id":"apt-1","petName":"Rex","status":"pending"}}}`)
	})

	apt, err := client.CreateAppointment(context.Background(), appointments.Draft{PetName: "Rex"})
	require.NoError(t, err)
	assert.Equal(t, "apt-1", apt.ID)
	assert.Equal(t, "Rex", apt.PetName)
	assert.Equal(t, appointments.StatusPending, apt.Status)
}

func TestCreateAppointmentBareData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"apt-2","ownerName":"Jane"}}`)
	})
	apt, err := client.CreateAppointment(context.Background(), appointments.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "apt-2", apt.ID)
	assert.Equal(t, "Jane", apt.OwnerName)
}

func TestCreateAppointmentWithoutData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	apt, err := client.CreateAppointment(context.Background(), appointments.Draft{PetName: "Rex"})
	require.NoError(t, err)
	assert.Equal(t, "Rex", apt.PetName)
	assert.Equal(t, appointments.StatusPending, apt.Status)
}

func TestListAppointmentsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "confirmed", q.Get("status"))
		assert.Equal(t, "2026-03-01", q.Get("startDate"))
		assert.Equal(t, "2026-03-31", q.Get("endDate"))
		assert.Equal(t, "scheduledDate", q.Get("sortBy"))
		assert.False(t, q.Has("search"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"appointments":[{"id":"a"},{"id":"b"}],"pagination":{"page":1,"limit":100,"total":2,"pages":1}}}`)
	})

	page, err := client.ListAppointments(context.Background(), appointments.ListOptions{
		Limit: 100, Status: appointments.StatusConfirmed, StartDate: "2026-03-01", EndDate: "2026-03-31",
	})
	require.NoError(t, err)
	require.Len(t, page.Appointments, 2)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestAppointmentListsAcceptBothShapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/appointments/today":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":"t1"}]}`)
		case "/api/appointments/upcoming":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"appointments":[{"id":"u1"},{"id":"u2"}]}}`)
		case "/api/appointments/date/2026-03-02":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{}}`)
		case "/api/appointments/session/session_test":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[]}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	today, err := client.Today(ctx)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	upcoming, err := client.Upcoming(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	byDate, err := client.ByDate(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.NotNil(t, byDate)
	assert.Empty(t, byDate)

	mine, err := client.SessionAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestStatusCancelAndUpdate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.Method + " " + r.URL.Path {
		case "PATCH /api/appointments/apt-1/status":
			assert.Equal(t, "confirmed", body["status"])
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"apt-1","status":"confirmed"}}`)
		case "PATCH /api/appointments/apt-1/cancel":
			assert.Equal(t, "moved away", body["reason"])
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"apt-1","status":"cancelled","cancellationReason":"moved away"}}`)
		case "PUT /api/appointments/apt-1":
			assert.Equal(t, "Milo", body["petName"])
			writeJSON(w, http.StatusOK, `{"success":true}`)
		case "GET /api/appointments/apt-1":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"apt-1"}}`)
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	apt, err := client.UpdateStatus(ctx, "apt-1", appointments.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusConfirmed, apt.Status)

	apt, err = client.CancelAppointment(ctx, "apt-1", "moved away")
	require.NoError(t, err)
	assert.Equal(t, "moved away", apt.CancellationReason)

	apt, err = client.UpdateAppointment(ctx, "apt-1", appointments.Draft{PetName: "Milo"})
	require.NoError(t, err)
	assert.Nil(t, apt)

	apt, err = client.GetAppointment(ctx, "apt-1")
	require.NoError(t, err)
	assert.Equal(t, "apt-1", apt.ID)
}

func TestAvailabilityAndCatalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/appointments/available-dates":
			assert.Equal(t, "14", r.URL.Query().Get("days"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"dates":[{"date":"2026-03-02","available":true,"slotsAvailable":4}]}}`)
		case "/api/appointments/available-slots/2026-03-02":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"slots":[{"time":"09:00","available":true},{"time":"10:00","available":false}]}}`)
		case "/api/appointments/services":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"services":[{"id":"checkup","name":"General Checkup"}],"petTypes":["dog","cat"]}}`)
		case "/api/appointments/stats":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"total":7,"today":2,"pending":3,"confirmed":4}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	dates, err := client.AvailableDates(ctx, 14)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, 4, dates[0].SlotsAvailable)

	slots, err := client.AvailableSlots(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", slots.Date)
	assert.Equal(t, []string{"09:00"}, slots.Open())

	catalog, err := client.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "cat"}, catalog.PetTypes)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 4, stats.Confirmed)
}
