package prescription

import (
	"errors"
	"fmt"
	"net/http"

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
	api.GET("/medications", h.ListMedications)
	api.POST("/medications", h.CreateMedication)
	api.GET("/medications/:id", h.GetMedication)
	api.PUT("/medications/:id", h.UpdateMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)

	api.GET("/prescriptions/templates", h.ListTemplates)
	api.POST("/prescriptions/templates", h.CreateTemplate)
	api.GET("/prescriptions/templates/:id", h.GetTemplate)
	api.PUT("/prescriptions/templates/:id", h.UpdateTemplate)
	api.DELETE("/prescriptions/templates/:id", h.DeleteTemplate)

	api.GET("/prescriptions", h.List)
	api.POST("/prescriptions", h.Create)
	api.GET("/prescriptions/:id", h.Get)
	api.PUT("/prescriptions/:id", h.Update)
	api.DELETE("/prescriptions/:id", h.Delete)
	api.GET("/prescriptions/:id/pdf", h.PDF)
	api.GET("/prescriptions/:id/versions", h.Versions)
	api.POST("/prescriptions/:id/versions", h.NewVersion)
}

// lockedResponse is the 409 payload for mutations of signed
// prescriptions.
func lockedResponse(c echo.Context) error {
	return c.JSON(http.StatusConflict, echo.Map{
		"code":    "prescription_locked",
		"message": ErrLocked.Error(),
	})
}

type medicationRequest struct {
	Name     string `json:"name" validate:"required"`
	Form     string `json:"form"`
	Strength string `json:"strength"`
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var req medicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	m := &Medication{Name: req.Name, Form: req.Form, Strength: req.Strength}
	if err := h.svc.CreateMedication(c.Request().Context(), m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req medicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	m := &Medication{ID: id, Name: req.Name, Form: req.Form, Strength: req.Strength}
	if err := h.svc.UpdateMedication(c.Request().Context(), m); err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fresh, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, fresh)
}

// DeleteMedication retires the catalog entry rather than removing it.
func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateMedication(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListMedications(c echo.Context) error {
	pg := pagination.FromContext(c)
	includeInactive := c.QueryParam("include_inactive") == "true"

	meds, total, err := h.svc.ListMedications(c.Request().Context(),
		c.QueryParam("q"), includeInactive, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(meds, total, pg.Limit, pg.Offset))
}

type templateItemRequest struct {
	MedicationID string `json:"medication_id" validate:"required,uuid"`
	Dosage       string `json:"dosage" validate:"required"`
	Route        string `json:"route"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

type templateRequest struct {
	Name          string                `json:"name" validate:"required"`
	NameFR        string                `json:"name_fr"`
	Description   string                `json:"description"`
	DescriptionFR string                `json:"description_fr"`
	IsActive      *bool                 `json:"is_active"`
	Items         []templateItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r templateRequest) toModel() (*Template, error) {
	t := &Template{
		Name:          r.Name,
		NameFR:        r.NameFR,
		Description:   r.Description,
		DescriptionFR: r.DescriptionFR,
		IsActive:      true,
		Items:         make([]TemplateItem, len(r.Items)),
	}
	if r.IsActive != nil {
		t.IsActive = *r.IsActive
	}
	for i, it := range r.Items {
		medID, err := uuid.Parse(it.MedicationID)
		if err != nil {
			return nil, fmt.Errorf("invalid medication_id on item %d", i+1)
		}
		t.Items[i] = TemplateItem{
			MedicationID: medID,
			Dosage:       it.Dosage,
			Route:        it.Route,
			Frequency:    it.Frequency,
			Duration:     it.Duration,
			Instructions: it.Instructions,
		}
	}
	return t, nil
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), t); err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateTemplate(c.Request().Context(), t); err != nil {
		if errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrMedicationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fresh, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, fresh)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	includeInactive := c.QueryParam("include_inactive") == "true"

	templates, total, err := h.svc.ListTemplates(c.Request().Context(), includeInactive, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(templates, total, pg.Limit, pg.Offset))
}

type itemRequest struct {
	MedicationID         string `json:"medication_id" validate:"required,uuid"`
	Dosage               string `json:"dosage" validate:"required"`
	Route                string `json:"route"`
	Frequency            string `json:"frequency"`
	Duration             string `json:"duration"`
	Instructions         string `json:"instructions"`
	AllowOutsidePurchase bool   `json:"allow_outside_purchase"`
}

type prescriptionRequest struct {
	VisitID    string        `json:"visit_id" validate:"required,uuid"`
	TemplateID *string       `json:"template_id" validate:"omitempty,uuid"`
	Notes      string        `json:"notes"`
	Items      []itemRequest `json:"items" validate:"omitempty,dive"`
}

func (r prescriptionRequest) toModel() (*Prescription, error) {
	visitID, err := uuid.Parse(r.VisitID)
	if err != nil {
		return nil, fmt.Errorf("invalid visit_id")
	}
	p := &Prescription{
		VisitID: visitID,
		Notes:   r.Notes,
		Items:   make([]Item, len(r.Items)),
	}
	if r.TemplateID != nil {
		templateID, err := uuid.Parse(*r.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("invalid template_id")
		}
		p.TemplateID = &templateID
	}
	for i, it := range r.Items {
		medID, err := uuid.Parse(it.MedicationID)
		if err != nil {
			return nil, fmt.Errorf("invalid medication_id on item %d", i+1)
		}
		p.Items[i] = Item{
			MedicationID:         medID,
			Dosage:               it.Dosage,
			Route:                it.Route,
			Frequency:            it.Frequency,
			Duration:             it.Duration,
			Instructions:         it.Instructions,
			AllowOutsidePurchase: it.AllowOutsidePurchase,
		}
	}
	return p, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), doctorID, p); err != nil {
		switch {
		case errors.Is(err, ErrVisitNotFound), errors.Is(err, ErrTemplateNotFound),
			errors.Is(err, ErrMedicationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	p, err := h.svc.Get(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := req.toModel()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.Update(c.Request().Context(), doctorID, p); err != nil {
		switch {
		case errors.Is(err, ErrLocked):
			return lockedResponse(c)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrMedicationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
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
		switch {
		case errors.Is(err, ErrLocked):
			return lockedResponse(c)
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var filter ListFilter
	if raw := c.QueryParam("visit"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid visit filter")
		}
		filter.VisitID = &id
	}
	if raw := c.QueryParam("patient"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient filter")
		}
		filter.PatientID = &id
	}

	prescriptions, total, err := h.svc.List(c.Request().Context(), doctorID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(prescriptions, total, pg.Limit, pg.Offset))
}

func (h *Handler) PDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	locale := ""
	if c.QueryParam("lang") != "" {
		locale = h.tr.Negotiate(c)
	}
	out, err := h.svc.PDF(c.Request().Context(), doctorID, id, locale)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="prescription-%s.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", out)
}

func (h *Handler) NewVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	next, err := h.svc.NewVersion(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, next)
}

func (h *Handler) Versions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	versions, err := h.svc.Versions(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, versions)
}
