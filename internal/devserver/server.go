// Package devserver is an in-memory stand-in for the assistant and scheduling
// service. It serves the same JSON contract so the CLI and end-to-end tests
// can run without the real backend.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/dateutil"
	httpmiddleware "github.com/wolfman30/vetbot/internal/http/middleware"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/internal/validation"
	"github.com/wolfman30/vetbot/pkg/logging"
)

// DefaultSlots are the bookable hours of a clinic day.
var DefaultSlots = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}

var defaultCatalog = appointments.ServiceCatalog{
	Services: []appointments.Service{
		{ID: "checkup", Name: "General Checkup", Description: "Routine wellness exam", DurationMin: 30},
		{ID: "vaccination", Name: "Vaccination", Description: "Core and lifestyle vaccines", DurationMin: 20},
		{ID: "dental", Name: "Dental Cleaning", Description: "Scaling and polishing", DurationMin: 60},
		{ID: "grooming", Name: "Grooming", Description: "Bath, brush and nail trim", DurationMin: 45},
		{ID: "surgery-consult", Name: "Surgery Consultation", DurationMin: 30},
		{ID: "emergency", Name: "Emergency Visit", DurationMin: 60},
	},
	PetTypes: []string{"dog", "cat", "bird", "rabbit", "other"},
}

// Config holds dev server configuration.
type Config struct {
	Logger         *logging.Logger
	Now            func() time.Time
	Slots          []string
	AllowedOrigins []string
	MetricsHandler http.Handler
	// ChatRate limits chat messages per session per second; zero disables it.
	ChatRate  float64
	ChatBurst int
}

// Server serves the assistant and scheduling API under /api.
type Server struct {
	logger *logging.Logger
	now    func() time.Time
	store  *store
	router http.Handler
}

// New builds a Server with empty state.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Slots) == 0 {
		cfg.Slots = DefaultSlots
	}
	s := &Server{
		logger: cfg.Logger,
		now:    cfg.Now,
		store:  newStore(cfg.Now, cfg.Slots),
	}
	s.router = s.routes(cfg)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.AllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/init", s.chatInit)
			r.With(chatLimiter(cfg)...).Post("/message", s.chatMessage)
			r.Get("/history/{sessionId}", s.chatHistory)
			r.Delete("/session/{sessionId}", s.chatReset)
		})
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", s.listAppointments)
			r.Post("/", s.createAppointment)
			r.Get("/stats", s.stats)
			r.Get("/today", s.today)
			r.Get("/upcoming", s.upcoming)
			r.Get("/services", s.services)
			r.Get("/available-dates", s.availableDates)
			r.Get("/available-slots/{date}", s.availableSlots)
			r.Get("/date/{date}", s.byDate)
			r.Get("/session/{sessionId}", s.bySession)
			r.Get("/{id}", s.getAppointment)
			r.Put("/{id}", s.updateAppointment)
			r.Patch("/{id}/status", s.updateStatus)
			r.Patch("/{id}/cancel", s.cancelAppointment)
			r.Delete("/{id}", s.deleteAppointment)
		})
	})
	return r
}

func chatLimiter(cfg Config) []func(http.Handler) http.Handler {
	if cfg.ChatRate <= 0 {
		return nil
	}
	burst := cfg.ChatBurst
	if burst <= 0 {
		burst = 1
	}
	return []func(http.Handler) http.Handler{
		httpmiddleware.RateLimit(httpmiddleware.NewRateLimiter(cfg.ChatRate, burst)),
	}
}

type envelope struct {
	Success          bool                      `json:"success"`
	Data             any                       `json:"data,omitempty"`
	Error            string                    `json:"error,omitempty"`
	ValidationErrors []appointments.FieldError `json:"validationErrors,omitempty"`
	SlotTaken        bool                      `json:"slotTaken,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Error: message})
}

func storeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		fail(w, http.StatusNotFound, "Appointment not found")
	case errors.Is(err, ErrSlotTaken):
		writeJSON(w, http.StatusConflict, envelope{Error: "This time slot is already booked. Please choose another time.", SlotTaken: true})
	default:
		fail(w, http.StatusInternalServerError, err.Error())
	}
}

type chatRequest struct {
	Message   string           `json:"message"`
	SessionID string           `json:"sessionId"`
	Context   *session.Context `json:"context"`
}

func decodeChat(r *http.Request) (chatRequest, error) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(httpmiddleware.SessionHeader)
	}
	return req, nil
}

func (s *Server) chatInit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChat(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	ok(w, http.StatusOK, map[string]string{"response": greeting(req.Context), "sessionId": req.SessionID})
}

func (s *Server) chatMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChat(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, envelope{
			Error:            "Validation failed",
			ValidationErrors: []appointments.FieldError{{Field: "message", Message: "Message is required"}},
		})
		return
	}
	if req.SessionID == "" {
		fail(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	text, bookingFlow := reply(msg)
	s.store.appendTurn(req.SessionID, "user", msg)
	s.store.appendTurn(req.SessionID, "assistant", text)
	ok(w, http.StatusOK, struct {
		Response      string `json:"response"`
		SessionID     string `json:"sessionId"`
		IsBookingFlow *bool  `json:"isBookingFlow,omitempty"`
	}{Response: text, SessionID: req.SessionID, IsBookingFlow: bookingFlow})
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	ok(w, http.StatusOK, map[string]any{"messages": s.store.turns(chi.URLParam(r, "sessionId"), limit)})
}

func (s *Server) chatReset(w http.ResponseWriter, r *http.Request) {
	s.store.dropSession(chi.URLParam(r, "sessionId"))
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// normalizeDraft brings user-typed dates and times into the stored forms.
func (s *Server) normalizeDraft(d *appointments.Draft) {
	if t, err := dateutil.ParseDate(d.ScheduledDate, s.now().Location()); err == nil {
		d.ScheduledDate = dateutil.FormatForAPI(t)
	}
	d.ScheduledTimeSlot = dateutil.NormalizeTimeSlot(d.ScheduledTimeSlot)
	if d.PetType == "" {
		d.PetType = appointments.DefaultPetType
	}
	if d.Service == "" {
		d.Service = appointments.DefaultService
	}
}

func (s *Server) validateDraft(w http.ResponseWriter, d appointments.Draft) bool {
	result := validation.ValidateAppointmentAt(d, s.now())
	if result.IsValid {
		return true
	}
	keys := make([]string, 0, len(result.Errors))
	for k := range result.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fieldErrs := make([]appointments.FieldError, 0, len(keys))
	for _, k := range keys {
		fieldErrs = append(fieldErrs, appointments.FieldError{Field: k, Message: result.Errors[k]})
	}
	writeJSON(w, http.StatusBadRequest, envelope{Error: "Validation failed", ValidationErrors: fieldErrs})
	return false
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var d appointments.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if d.SessionID == "" {
		d.SessionID = r.Header.Get(httpmiddleware.SessionHeader)
	}
	if !s.validateDraft(w, d) {
		return
	}
	s.normalizeDraft(&d)
	if !s.slotOffered(d.ScheduledTimeSlot) {
		writeJSON(w, http.StatusBadRequest, envelope{
			Error:            "Validation failed",
			ValidationErrors: []appointments.FieldError{{Field: appointments.FieldScheduledTimeSlot, Message: "Please choose a time between 9:00 AM and 4:00 PM"}},
		})
		return
	}
	apt, err := s.store.create(d)
	if err != nil {
		storeFailure(w, err)
		return
	}
	s.logger.Info("devserver: appointment created", "appointment_id", apt.ID, "date", apt.ScheduledDate, "slot", apt.ScheduledTimeSlot)
	ok(w, http.StatusCreated, map[string]any{"appointment": apt})
}

func (s *Server) slotOffered(slot string) bool {
	for _, offered := range s.store.slots {
		if offered == slot {
			return true
		}
	}
	return false
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	apt, err := s.store.get(chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, err)
		return
	}
	ok(w, http.StatusOK, apt)
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	var d appointments.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	apt, err := s.store.update(chi.URLParam(r, "id"), func(a *appointments.Appointment) error {
		sessionID := a.SessionID
		a.Draft = a.Draft.Overlay(d)
		a.SessionID = sessionID
		s.normalizeDraft(&a.Draft)
		return nil
	})
	if err != nil {
		storeFailure(w, err)
		return
	}
	ok(w, http.StatusOK, apt)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	status, valid := appointments.ParseStatus(body.Status)
	if !valid {
		fail(w, http.StatusBadRequest, fmt.Sprintf("Invalid status %q", body.Status))
		return
	}
	apt, err := s.store.update(chi.URLParam(r, "id"), func(a *appointments.Appointment) error {
		a.Status = status
		return nil
	})
	if err != nil {
		storeFailure(w, err)
		return
	}
	ok(w, http.StatusOK, apt)
}

func (s *Server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	apt, err := s.store.update(chi.URLParam(r, "id"), func(a *appointments.Appointment) error {
		a.Status = appointments.StatusCancelled
		a.CancellationReason = strings.TrimSpace(body.Reason)
		return nil
	})
	if err != nil {
		storeFailure(w, err)
		return
	}
	ok(w, http.StatusOK, apt)
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.remove(chi.URLParam(r, "id")); err != nil {
		storeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	opts := appointments.ListOptions{
		Page: page, Limit: limit,
		Status: appointments.Status(q.Get("status")), Date: q.Get("date"),
		StartDate: q.Get("startDate"), EndDate: q.Get("endDate"), Search: q.Get("search"),
		SortBy: q.Get("sortBy"), SortOrder: q.Get("sortOrder"),
	}.WithDefaults()

	list := s.store.filter(func(a *appointments.Appointment) bool {
		switch {
		case opts.Status != "" && a.Status != opts.Status:
			return false
		case opts.Date != "" && a.ScheduledDate != opts.Date:
			return false
		case opts.StartDate != "" && a.ScheduledDate < opts.StartDate:
			return false
		case opts.EndDate != "" && a.ScheduledDate > opts.EndDate:
			return false
		}
		return matchesSearch(a, opts.Search)
	})
	if opts.SortBy == "createdAt" {
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	}
	if strings.EqualFold(opts.SortOrder, "desc") {
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}

	total := len(list)
	start := (opts.Page - 1) * opts.Limit
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	pages := (total + opts.Limit - 1) / opts.Limit
	ok(w, http.StatusOK, appointments.Page{
		Appointments: list[start:end],
		Pagination:   appointments.Pagination{Page: opts.Page, Limit: opts.Limit, Total: total, Pages: pages},
	})
}

func (s *Server) today(w http.ResponseWriter, r *http.Request) {
	today := s.store.today()
	ok(w, http.StatusOK, s.store.filter(func(a *appointments.Appointment) bool { return a.ScheduledDate == today }))
}

func (s *Server) upcoming(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	today := s.store.today()
	list := s.store.filter(func(a *appointments.Appointment) bool { return a.ScheduledDate >= today && active(a) })
	if len(list) > limit {
		list = list[:limit]
	}
	ok(w, http.StatusOK, map[string]any{"appointments": list})
}

func (s *Server) byDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	ok(w, http.StatusOK, s.store.filter(func(a *appointments.Appointment) bool { return a.ScheduledDate == date }))
}

func (s *Server) bySession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sessionId")
	ok(w, http.StatusOK, s.store.filter(func(a *appointments.Appointment) bool { return a.SessionID == sid }))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, s.store.stats())
}

func (s *Server) services(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, defaultCatalog)
}

func (s *Server) availableDates(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 || days > 90 {
		days = 14
	}
	out := make([]appointments.AvailableDate, 0, days)
	for _, day := range dateutil.NextDays(s.now(), days) {
		date := dateutil.FormatForAPI(day)
		open := 0
		for _, slot := range s.store.slotsFor(date) {
			if slot.Available {
				open++
			}
		}
		out = append(out, appointments.AvailableDate{
			Date:           date,
			DayOfWeek:      day.Weekday().String(),
			Available:      open > 0,
			SlotsAvailable: open,
		})
	}
	ok(w, http.StatusOK, map[string]any{"dates": out})
}

func (s *Server) availableSlots(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	day, err := dateutil.ParseDate(raw, s.now().Location())
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
		return
	}
	date := dateutil.FormatForAPI(day)
	ok(w, http.StatusOK, appointments.SlotAvailability{Date: date, Slots: s.store.slotsFor(date)})
}
