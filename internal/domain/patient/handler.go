package patient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/filestore"
	"github.com/clinicflow/clinicflow/pkg/pagination"
)

type Handler struct {
	svc   *Service
	files filestore.Store
}

func NewHandler(svc *Service, files filestore.Store) *Handler {
	return &Handler{svc: svc, files: files}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.List)
	api.POST("/patients", h.Create)
	api.GET("/patients/:id", h.Get)
	api.PUT("/patients/:id", h.Update)
	api.DELETE("/patients/:id", h.Delete)
	api.POST("/patients/:id/archive", h.Archive)
	api.POST("/patients/:id/restore", h.Restore)

	api.GET("/patients/:id/files", h.ListFiles)
	api.POST("/patients/:id/files", h.UploadFile)
	api.GET("/patients/:id/files/:fileID", h.GetFile)
	api.GET("/patients/:id/files/:fileID/download", h.DownloadFile)
	api.DELETE("/patients/:id/files/:fileID", h.DeleteFile)
}

type patientRequest struct {
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	Sex         string  `json:"sex" validate:"required,oneof=M F"`
	DateOfBirth string  `json:"date_of_birth" validate:"required"`
	Phone       *string `json:"phone" validate:"omitempty,drc_phone"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Address     string  `json:"address" validate:"required"`
}

func (r patientRequest) toModel() (*Patient, error) {
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("invalid date_of_birth, expected YYYY-MM-DD")
	}
	return &Patient{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Sex:         r.Sex,
		DateOfBirth: dob,
		Phone:       r.Phone,
		Email:       r.Email,
		Address:     r.Address,
	}, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req patientRequest
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
	p.DoctorID = auth.DoctorIDFromContext(c.Request().Context())

	if err := h.svc.Create(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
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
	var req patientRequest
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

// Delete archives the patient. Records are never physically removed.
func (h *Handler) Delete(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *Handler) Archive(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *Handler) Restore(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	var opErr error
	if active {
		opErr = h.svc.Restore(c.Request().Context(), doctorID, id)
	} else {
		opErr = h.svc.Archive(c.Request().Context(), doctorID, id)
	}
	if opErr != nil {
		if errors.Is(opErr, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, opErr.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := SearchParams{
		Query:           c.QueryParam("search"),
		IncludeArchived: c.QueryParam("include_archived") == "true",
		OrderBy:         c.QueryParam("order_by"),
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())

	items, total, err := h.svc.List(c.Request().Context(), doctorID, params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Files --

// patientFromPath loads the patient, enforcing doctor scope, so file
// routes never operate on another doctor's patient.
func (h *Handler) patientFromPath(c echo.Context) (*Patient, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	p, err := h.svc.Get(c.Request().Context(), doctorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return p, nil
}

func (h *Handler) UploadFile(c echo.Context) error {
	p, err := h.patientFromPath(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	meta := filestore.FileMetadata{
		PatientID:   p.ID,
		DoctorID:    p.DoctorID,
		FileName:    file.Filename,
		ContentType: contentType,
		Category:    c.FormValue("category"),
		Description: c.FormValue("description"),
	}

	saved, err := h.files.Save(c.Request().Context(), meta, src)
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, filestore.ErrInvalidCategory), errors.Is(err, filestore.ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) ListFiles(c echo.Context) error {
	p, err := h.patientFromPath(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	items, total, err := h.files.ListByPatient(c.Request().Context(), p.DoctorID, p.ID,
		c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*filestore.FileMetadata{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func fileIDFromPath(c echo.Context) (uuid.UUID, error) {
	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid file id")
	}
	return fileID, nil
}

func (h *Handler) GetFile(c echo.Context) error {
	p, err := h.patientFromPath(c)
	if err != nil {
		return err
	}
	fileID, err := fileIDFromPath(c)
	if err != nil {
		return err
	}

	rc, meta, err := h.files.Open(c.Request().Context(), p.DoctorID, fileID)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	rc.Close()
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) DownloadFile(c echo.Context) error {
	p, err := h.patientFromPath(c)
	if err != nil {
		return err
	}
	fileID, err := fileIDFromPath(c)
	if err != nil {
		return err
	}

	rc, meta, err := h.files.Open(c.Request().Context(), p.DoctorID, fileID)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) DeleteFile(c echo.Context) error {
	p, err := h.patientFromPath(c)
	if err != nil {
		return err
	}
	fileID, err := fileIDFromPath(c)
	if err != nil {
		return err
	}

	if err := h.files.Delete(c.Request().Context(), p.DoctorID, fileID); err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
