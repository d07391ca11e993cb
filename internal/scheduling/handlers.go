package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"roombooking/internal/api"
	"roombooking/internal/booking"
)

type Handlers struct {
	Service  *Service
	Logger   *slog.Logger
	Validate *validator.Validate
}

func NewHandlers(svc *Service, logger *slog.Logger) Handlers {
	return Handlers{Service: svc, Logger: logger, Validate: validator.New(validator.WithRequiredStructEnabled())}
}

type SubmitRequest struct {
	RoomID      string `json:"roomId" validate:"required,max=64"`
	RequesterID string `json:"requesterId" validate:"omitempty,max=128"`
	StartTime   string `json:"startTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime     string `json:"endTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Purpose     string `json:"purpose" validate:"max=1000"`
}

type StatusRequest struct {
	// Status is the numeric code: 1 Approved, 2 Rejected, 3 Cancelled.
	Status *int   `json:"status" validate:"required,min=1,max=3"`
	Notes  string `json:"notes" validate:"max=1000"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func items[T any](list []T) listResponse[T] {
	if list == nil {
		list = []T{}
	}
	return listResponse[T]{Items: list}
}

func (h Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func (h Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	// Already checked by the datetime rule.
	start, _ := time.Parse(time.RFC3339, req.StartTime)
	end, _ := time.Parse(time.RFC3339, req.EndTime)

	b, err := h.Service.Submit(r.Context(), api.PrincipalFromContext(r.Context()), SubmitInput{
		RoomID:      req.RoomID,
		RequesterID: req.RequesterID,
		Start:       start,
		End:         end,
		Purpose:     strings.TrimSpace(req.Purpose),
	})
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, b)
}

func (h Handlers) PutStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, err := booking.StatusFromCode(*req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}

	b, err := h.Service.Decide(r.Context(), api.PrincipalFromContext(r.Context()), id, to, strings.TrimSpace(req.Notes))
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Purge(r.Context(), api.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	var status *booking.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := parseStatusParam(raw)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
			return
		}
		status = &st
	}
	list, err := h.Service.AllBookings(r.Context(), api.PrincipalFromContext(r.Context()), status)
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(list))
}

func (h Handlers) Mine(w http.ResponseWriter, r *http.Request) {
	p := api.PrincipalFromContext(r.Context())
	list, err := h.Service.RequesterBookings(r.Context(), p, p.UserID)
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(list))
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Booking(r.Context(), api.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.BookingLogs(r.Context(), api.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(entries))
}

func (h Handlers) ByRoom(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	list, err := h.Service.RoomSchedule(r.Context(), chi.URLParam(r, "roomId"), activeOnly)
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(list))
}

func (h Handlers) RoomLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.RoomLogs(r.Context(), api.PrincipalFromContext(r.Context()), chi.URLParam(r, "roomId"))
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(entries))
}

func (h Handlers) ByRequester(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.RequesterBookings(r.Context(), api.PrincipalFromContext(r.Context()), chi.URLParam(r, "requesterId"))
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(list))
}

func (h Handlers) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Service.Rooms(r.Context())
	if err != nil {
		api.WriteDomainError(w, r, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items(rooms))
}

// parseStatusParam accepts a status name or its numeric code.
func parseStatusParam(raw string) (booking.Status, error) {
	if code, err := strconv.Atoi(raw); err == nil {
		return booking.StatusFromCode(code)
	}
	return booking.ParseStatus(raw)
}
