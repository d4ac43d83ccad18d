package appointment

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.List)
	api.POST("/appointments", h.Create)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id", h.Update)
	api.DELETE("/appointments/:id", h.Delete)
}

// conflictResponse is the 409 payload for double bookings.
func conflictResponse(c echo.Context) error {
	return c.JSON(http.StatusConflict, echo.Map{
		"code":    "appointment_conflict",
		"message": ErrConflict.Error(),
	})
}

type appointmentRequest struct {
	PatientID        string  `json:"patient_id" validate:"required,uuid"`
	VisitID          *string `json:"visit_id" validate:"omitempty,uuid"`
	ScheduledAt      string  `json:"scheduled_at" validate:"required"`
	DurationMinutes  int     `json:"duration_minutes" validate:"omitempty,gt=0"`
	Reason           string  `json:"reason"`
	Status           string  `json:"status" validate:"omitempty,oneof=SCHEDULED CHECKED_IN COMPLETED CANCELLED NO_SHOW"`
	Notes            string  `json:"notes"`
	RemindersEnabled *bool   `json:"reminders_enabled"`
}

func (r appointmentRequest) toModel() (*Appointment, error) {
	patientID, err := uuid.Parse(r.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient_id")
	}
	scheduledAt, err := time.Parse(time.RFC3339, r.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled_at, expected RFC 3339 timestamp")
	}
	a := &Appointment{
		PatientID:        patientID,
		ScheduledAt:      scheduledAt,
		DurationMinutes:  r.DurationMinutes,
		Reason:           r.Reason,
		Status:           r.Status,
		Notes:            r.Notes,
		RemindersEnabled: true,
	}
	if r.VisitID != nil {
		visitID, err := uuid.Parse(*r.VisitID)
		if err != nil {
			return nil, fmt.Errorf("invalid visit_id")
		}
		a.VisitID = &visitID
	}
	if r.RemindersEnabled != nil {
		a.RemindersEnabled = *r.RemindersEnabled
	}
	return a, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), doctorID, a); err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			return conflictResponse(c)
		case errors.Is(err, ErrPatientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	a, err := h.svc.Get(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.Update(c.Request().Context(), doctorID, a); err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			return conflictResponse(c)
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	fresh, err := h.svc.Get(c.Request().Context(), doctorID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, fresh)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	if err := h.svc.Delete(c.Request().Context(), doctorID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var filter ListFilter
	if raw := c.QueryParam("patient"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient filter")
		}
		filter.PatientID = &id
	}
	filter.Status = c.QueryParam("status")
	filter.Upcoming = c.QueryParam("upcoming") == "true"
	if raw := c.QueryParam("date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date filter, expected YYYY-MM-DD")
		}
		filter.Date = &day
	}

	appointments, total, err := h.svc.List(c.Request().Context(), doctorID, filter, pg.Limit, pg.Offset)
	if err != nil {
		if filter.Status != "" && !validStatuses[filter.Status] {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appointments, total, pg.Limit, pg.Offset))
}
