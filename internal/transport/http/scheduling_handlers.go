package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/service/scheduling"
)

type schedulingService interface {
	AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]domain.Slot, error)
	WeeklyAvailability(ctx context.Context, practitionerIDs []uuid.UUID, from time.Time) (map[uuid.UUID]map[string][]domain.Slot, error)
	Book(ctx context.Context, actor domain.Actor, in scheduling.BookInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, in scheduling.BookInput) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListForPractitioner(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	CreateWindow(ctx context.Context, actor domain.Actor, in scheduling.WindowInput) (domain.WorkingWindow, error)
	UpdateWindow(ctx context.Context, actor domain.Actor, id uuid.UUID, in scheduling.WindowInput) (domain.WorkingWindow, error)
	DeleteWindow(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	ListWindows(ctx context.Context, practitionerID uuid.UUID) ([]domain.WorkingWindow, error)
}

type SchedulingHandler struct {
	svc schedulingService
	log *slog.Logger
}

func NewSchedulingHandler(svc schedulingService, log *slog.Logger) *SchedulingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingHandler{svc: svc, log: log.With(slog.String("component", "http.scheduling"))}
}

func (h *SchedulingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return
	}
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), practitionerID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *SchedulingHandler) WeeklyAvailability(w http.ResponseWriter, r *http.Request) {
	rawIDs := strings.Split(r.URL.Query().Get("ids"), ",")
	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "ids must be comma-separated UUIDs")
			return
		}
		ids = append(ids, id)
	}

	from := time.Now().UTC()
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}

	weekly, err := h.svc.WeeklyAvailability(r.Context(), ids, from)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make(map[string]map[string][]SlotResponse, len(weekly))
	for pid, byDate := range weekly {
		days := make(map[string][]SlotResponse, len(byDate))
		for date, slots := range byDate {
			days[date] = toSlotResponses(slots)
		}
		out[pid.String()] = days
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SchedulingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}

	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	in, err := bookInputFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	appt, err := h.svc.Book(r.Context(), actor, in)
	if err != nil {
		h.logBookingFailure(r, "appointment create failed", err)
		writeServiceError(w, err)
		return
	}

	h.log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("practitioner_id", appt.PractitionerID.String()),
		slog.Time("start_time", appt.StartTime),
	)
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *SchedulingHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	in, err := bookInputFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), actor, id, in)
	if err != nil {
		h.logBookingFailure(r, "appointment update failed", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *SchedulingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}
	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *SchedulingHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	practitionerID, err := uuid.Parse(r.URL.Query().Get("practitioner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
		return
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
		return
	}

	appts, err := h.svc.ListForPractitioner(r.Context(), practitionerID, from, to.AddDate(0, 0, 1))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SchedulingHandler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}
	practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return
	}

	var req WorkingWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	in, err := windowInputFromRequest(practitionerID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	window, err := h.svc.CreateWindow(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWindowResponse(window))
}

func (h *SchedulingHandler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
		return
	}

	var req WorkingWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	practitionerID, err := uuid.Parse(r.URL.Query().Get("practitioner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
		return
	}
	in, err := windowInputFromRequest(practitionerID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	window, err := h.svc.UpdateWindow(r.Context(), actor, id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(window))
}

func (h *SchedulingHandler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
		return
	}

	if err := h.svc.DeleteWindow(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "working window deleted"})
}

func (h *SchedulingHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return
	}
	windows, err := h.svc.ListWindows(r.Context(), practitionerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]WorkingWindowResponse, 0, len(windows))
	for _, win := range windows {
		out = append(out, toWindowResponse(win))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SchedulingHandler) logBookingFailure(r *http.Request, msg string, err error) {
	h.log.Warn(
		msg,
		slog.Any("err", err),
		slog.String("request_id", RequestID(r.Context())),
	)
}

func bookInputFromRequest(req AppointmentRequest) (scheduling.BookInput, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return scheduling.BookInput{}, errInvalidUUID("patient_id")
	}
	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		return scheduling.BookInput{}, errInvalidUUID("practitioner_id")
	}
	var serviceID uuid.UUID
	if req.ServiceID != "" {
		serviceID, err = uuid.Parse(req.ServiceID)
		if err != nil {
			return scheduling.BookInput{}, errInvalidUUID("service_id")
		}
	}
	return scheduling.BookInput{
		PatientID:      patientID,
		PractitionerID: practitionerID,
		ServiceID:      serviceID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         domain.AppointmentStatus(req.Status),
		Notes:          req.Notes,
	}, nil
}

func windowInputFromRequest(practitionerID uuid.UUID, req WorkingWindowRequest) (scheduling.WindowInput, error) {
	startMinute, err := domain.ParseClock(req.StartTime)
	if err != nil {
		return scheduling.WindowInput{}, err
	}
	endMinute, err := domain.ParseClock(req.EndTime)
	if err != nil {
		return scheduling.WindowInput{}, err
	}
	return scheduling.WindowInput{
		PractitionerID:      practitionerID,
		DayOfWeek:           req.DayOfWeek,
		StartMinute:         startMinute,
		EndMinute:           endMinute,
		SlotDurationMinutes: req.SlotDurationMinutes,
	}, nil
}

type errInvalidUUID string

func (e errInvalidUUID) Error() string {
	return string(e) + " must be a valid UUID"
}
