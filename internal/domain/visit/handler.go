package visit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/i18n"
	"github.com/clinicflow/clinicflow/pkg/pagination"
)

type Handler struct {
	svc *Service
	tr  *i18n.Translator
}

func NewHandler(svc *Service, tr *i18n.Translator) *Handler {
	return &Handler{svc: svc, tr: tr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/visits", h.List)
	api.POST("/visits", h.Create)
	api.GET("/visits/:id", h.Get)
	api.PUT("/visits/:id", h.Update)
	api.DELETE("/visits/:id", h.Delete)
	api.GET("/visits/:id/pdf", h.SummaryPDF)

	api.GET("/vitals", h.ListVitals)
	api.POST("/vitals", h.AddVitals)
	api.GET("/vitals/:id", h.GetVitals)
	api.PUT("/vitals/:id", h.UpdateVitals)
	api.DELETE("/vitals/:id", h.DeleteVitals)
}

type visitRequest struct {
	PatientID         string `json:"patient_id" validate:"required,uuid"`
	VisitDate         string `json:"visit_date" validate:"required"`
	VisitType         string `json:"visit_type" validate:"omitempty,oneof=CONSULTATION FOLLOW_UP"`
	ChiefComplaint    string `json:"chief_complaint"`
	MedicalHistory    string `json:"medical_history"`
	PresentIllness    string `json:"present_illness"`
	PhysicalExam      string `json:"physical_exam"`
	ComplementaryExam string `json:"complementary_exam"`
	Assessment        string `json:"assessment"`
	Plan              string `json:"plan"`
	Treatment         string `json:"treatment"`
	Notes             string `json:"notes"`
}

func (r visitRequest) toModel() (*Visit, error) {
	patientID, err := uuid.Parse(r.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient_id")
	}
	date, err := time.Parse("2006-01-02", r.VisitDate)
	if err != nil {
		return nil, fmt.Errorf("invalid visit_date, expected YYYY-MM-DD")
	}
	return &Visit{
		PatientID:         patientID,
		VisitDate:         date,
		VisitType:         r.VisitType,
		ChiefComplaint:    r.ChiefComplaint,
		MedicalHistory:    r.MedicalHistory,
		PresentIllness:    r.PresentIllness,
		PhysicalExam:      r.PhysicalExam,
		ComplementaryExam: r.ComplementaryExam,
		Assessment:        r.Assessment,
		Plan:              r.Plan,
		Treatment:         r.Treatment,
		Notes:             r.Notes,
	}, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req visitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	v, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), doctorID, v); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	v, err := h.svc.Get(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req visitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	v, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.ID = id

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.Update(c.Request().Context(), doctorID, v); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
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

	var patientID *uuid.UUID
	if raw := c.QueryParam("patient"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient filter")
		}
		patientID = &id
	}

	visits, total, err := h.svc.List(c.Request().Context(), doctorID, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg.Limit, pg.Offset))
}

func (h *Handler) SummaryPDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	locale := ""
	if c.QueryParam("lang") != "" {
		locale = h.tr.Negotiate(c)
	}
	out, err := h.svc.SummaryPDF(c.Request().Context(), doctorID, id, locale)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="visit-%s.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", out)
}

type vitalRequest struct {
	VisitID             string   `json:"visit_id" validate:"required,uuid"`
	MeasuredAt          string   `json:"measured_at" validate:"required"`
	WeightKG            *float64 `json:"weight_kg" validate:"omitempty,gt=0"`
	HeightCM            *float64 `json:"height_cm" validate:"omitempty,gt=0"`
	TemperatureC        *float64 `json:"temperature_c" validate:"omitempty,gte=25,lte=45"`
	SystolicBP          *int     `json:"systolic_bp" validate:"omitempty,gt=0"`
	DiastolicBP         *int     `json:"diastolic_bp" validate:"omitempty,gt=0"`
	HeartRateBPM        *int     `json:"heart_rate_bpm" validate:"omitempty,gt=0"`
	RespiratoryRate     *int     `json:"respiratory_rate" validate:"omitempty,gt=0"`
	OxygenSaturation    *int     `json:"oxygen_saturation" validate:"omitempty,gte=0,lte=100"`
	HeadCircumferenceCM *float64 `json:"head_circumference_cm" validate:"omitempty,gt=0"`
	Notes               string   `json:"notes"`
}

func (r vitalRequest) toModel() (*VitalSign, error) {
	visitID, err := uuid.Parse(r.VisitID)
	if err != nil {
		return nil, fmt.Errorf("invalid visit_id")
	}
	measuredAt, err := time.Parse(time.RFC3339, r.MeasuredAt)
	if err != nil {
		return nil, fmt.Errorf("invalid measured_at, expected RFC 3339 timestamp")
	}
	return &VitalSign{
		VisitID:             visitID,
		MeasuredAt:          measuredAt,
		WeightKG:            r.WeightKG,
		HeightCM:            r.HeightCM,
		TemperatureC:        r.TemperatureC,
		SystolicBP:          r.SystolicBP,
		DiastolicBP:         r.DiastolicBP,
		HeartRateBPM:        r.HeartRateBPM,
		RespiratoryRate:     r.RespiratoryRate,
		OxygenSaturation:    r.OxygenSaturation,
		HeadCircumferenceCM: r.HeadCircumferenceCM,
		Notes:               r.Notes,
	}, nil
}

func (h *Handler) AddVitals(c echo.Context) error {
	var req vitalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	vs, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.AddVitals(c.Request().Context(), doctorID, vs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, vs)
}

func (h *Handler) GetVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	vs, err := h.svc.GetVitals(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrVitalNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrVitalNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, vs)
}

func (h *Handler) UpdateVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req vitalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	vs, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	vs.ID = id

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.UpdateVitals(c.Request().Context(), doctorID, vs); err != nil {
		if errors.Is(err, ErrVitalNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrVitalNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fresh, err := h.svc.GetVitals(c.Request().Context(), doctorID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, fresh)
}

func (h *Handler) DeleteVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	if err := h.svc.DeleteVitals(c.Request().Context(), doctorID, id); err != nil {
		if errors.Is(err, ErrVitalNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrVitalNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListVitals(c echo.Context) error {
	raw := c.QueryParam("visit")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "visit query parameter is required")
	}
	visitID, err := uuid.Parse(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit filter")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	vitals, err := h.svc.ListVitals(c.Request().Context(), doctorID, visitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, vitals)
}
