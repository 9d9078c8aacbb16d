package appointments

import (
	"encoding/json"
	"strings"
	"time"
)

// Field keys shared by drafts, validation errors and server rejections.
const (
	FieldOwnerName         = "ownerName"
	FieldPetName           = "petName"
	FieldPhone             = "phone"
	FieldEmail             = "email"
	FieldPetType           = "petType"
	FieldScheduledDate     = "scheduledDate"
	FieldScheduledTimeSlot = "scheduledTimeSlot"
	FieldService           = "service"
	FieldReason            = "reason"
	FieldNotes             = "notes"
)

const (
	DefaultPetType = "other"
	DefaultService = "checkup"
)

// Draft is an appointment request being assembled before submission.
type Draft struct {
	OwnerName         string `json:"ownerName"`
	PetName           string `json:"petName"`
	Phone             string `json:"phone"`
	Email             string `json:"email,omitempty"`
	PetType           string `json:"petType"`
	ScheduledDate     string `json:"scheduledDate"`
	ScheduledTimeSlot string `json:"scheduledTimeSlot"`
	Service           string `json:"service"`
	Reason            string `json:"reason,omitempty"`
	Notes             string `json:"notes,omitempty"`
	SessionID         string `json:"sessionId,omitempty"`
}

// DefaultDraft returns a draft with the optional fields defaulted.
func DefaultDraft() Draft {
	return Draft{PetType: DefaultPetType, Service: DefaultService}
}

// Overlay returns d with every non-empty field of seed applied.
func (d Draft) Overlay(seed Draft) Draft {
	for _, key := range draftKeys {
		if v := seed.Get(key); v != "" {
			d.Set(key, v)
		}
	}
	if seed.SessionID != "" {
		d.SessionID = seed.SessionID
	}
	return d
}

var draftKeys = []string{
	FieldOwnerName, FieldPetName, FieldPhone, FieldEmail, FieldPetType,
	FieldScheduledDate, FieldScheduledTimeSlot, FieldService, FieldReason, FieldNotes,
}

// Get returns the value stored under a field key.
func (d Draft) Get(key string) string {
	switch key {
	case FieldOwnerName:
		return d.OwnerName
	case FieldPetName:
		return d.PetName
	case FieldPhone:
		return d.Phone
	case FieldEmail:
		return d.Email
	case FieldPetType:
		return d.PetType
	case FieldScheduledDate:
		return d.ScheduledDate
	case FieldScheduledTimeSlot:
		return d.ScheduledTimeSlot
	case FieldService:
		return d.Service
	case FieldReason:
		return d.Reason
	case FieldNotes:
		return d.Notes
	}
	return ""
}

// Set stores value under a field key. It reports false for unknown keys.
func (d *Draft) Set(key, value string) bool {
	switch key {
	case FieldOwnerName:
		d.OwnerName = value
	case FieldPetName:
		d.PetName = value
	case FieldPhone:
		d.Phone = value
	case FieldEmail:
		d.Email = value
	case FieldPetType:
		d.PetType = value
	case FieldScheduledDate:
		d.ScheduledDate = value
	case FieldScheduledTimeSlot:
		d.ScheduledTimeSlot = value
	case FieldService:
		d.Service = value
	case FieldReason:
		d.Reason = value
	case FieldNotes:
		d.Notes = value
	default:
		return false
	}
	return true
}

// Status is the lifecycle status of a booked appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no-show"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// ParseStatus normalizes user input into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s == "noshow" || s == "no_show" {
		s = StatusNoShow
	}
	return s, s.Valid()
}

// Appointment is a booked appointment as returned by the scheduling service.
type Appointment struct {
	ID string `json:"id"`
	Draft
	Status             Status    `json:"status"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts both "id" and the document-store style "_id".
func (a *Appointment) UnmarshalJSON(data []byte) error {
	type plain Appointment
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Appointment(aux.plain)
	if a.ID == "" {
		a.ID = aux.MongoID
	}
	return nil
}

// FieldError is a server-side validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Service is a bookable service offered by the clinic.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DurationMin int    `json:"duration,omitempty"`
}

// ServiceCatalog lists services and accepted pet types.
type ServiceCatalog struct {
	Services []Service `json:"services"`
	PetTypes []string  `json:"petTypes"`
}

// AvailableDate summarizes availability for one calendar day.
type AvailableDate struct {
	Date           string `json:"date"`
	DayOfWeek      string `json:"dayOfWeek,omitempty"`
	Available      bool   `json:"available"`
	SlotsAvailable int    `json:"slotsAvailable"`
}

// Slot is one bookable time on a date.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// UnmarshalJSON also accepts a bare "HH:MM" string, meaning an open slot.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*s = Slot{Time: bare, Available: true}
		return nil
	}
	type plain Slot
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Slot(p)
	return nil
}

// SlotAvailability lists slots for a date.
type SlotAvailability struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Open returns the available slot times.
func (s SlotAvailability) Open() []string {
	out := make([]string, 0, len(s.Slots))
	for _, slot := range s.Slots {
		if slot.Available {
			out = append(out, slot.Time)
		}
	}
	return out
}

// Pagination describes a page of results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page is a page of appointments for the operator view.
type Page struct {
	Appointments []Appointment `json:"appointments"`
	Pagination   Pagination    `json:"pagination"`
}

// Stats are dashboard counters.
type Stats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	Upcoming  int `json:"upcoming"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

// ListOptions filters the operator appointment list.
type ListOptions struct {
	Page      int
	Limit     int
	Status    Status
	Date      string
	StartDate string
	EndDate   string
	Search    string
	SortBy    string
	SortOrder string
}

// WithDefaults fills paging and sorting defaults.
func (o ListOptions) WithDefaults() ListOptions {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.SortBy == "" {
		o.SortBy = FieldScheduledDate
	}
	if o.SortOrder == "" {
		o.SortOrder = "asc"
	}
	return o
}
