package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts auth routes. login and refresh stay public;
// everything else sits behind the JWT middleware.
func (h *Handler) RegisterRoutes(authGroup *echo.Group, jwtMiddleware echo.MiddlewareFunc) {
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)

	protected := authGroup.Group("", jwtMiddleware)
	protected.GET("/me", h.Me)
	protected.PATCH("/profile", h.UpdateProfile)
	protected.POST("/change-password", h.ChangePassword)
	protected.GET("/availability", h.ListAvailability)
	protected.POST("/availability", h.SetAvailability)
	protected.POST("/availability/bulk", h.SetAvailabilityBulk)
	protected.DELETE("/availability", h.DeleteAvailability)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	Doctor       *Doctor `json:"doctor"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, doctor, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		Doctor:       doctor,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.svc.Refresh(req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Me(c echo.Context) error {
	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	doctor, err := h.svc.GetDoctor(c.Request().Context(), doctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doctor)
}

type updateProfileRequest struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Specialization *string `json:"specialization"`
	LicenseNumber  *string `json:"license_number"`
	Phone          *string `json:"phone" validate:"omitempty,drc_phone|phone_number"`
	Locale         *string `json:"locale" validate:"omitempty,locale"`
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	doctor, err := h.svc.UpdateProfile(c.Request().Context(), doctorID, UpdateProfileParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
		Phone:          req.Phone,
		Locale:         req.Locale,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, doctor)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.ChangePassword(c.Request().Context(), doctorID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type availabilityRequest struct {
	Date      string  `json:"date" validate:"required"`
	SlotType  string  `json:"slot_type" validate:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Notes     *string `json:"notes"`
}

func (r availabilityRequest) toParams() (AvailabilityParams, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return AvailabilityParams{}, err
	}
	return AvailabilityParams{
		Date:      date,
		SlotType:  r.SlotType,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Notes:     r.Notes,
	}, nil
}

func (h *Handler) SetAvailability(c echo.Context) error {
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	params, err := req.toParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	a, err := h.svc.SetAvailability(c.Request().Context(), doctorID, params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

type availabilityBulkRequest struct {
	Slots []availabilityRequest `json:"slots" validate:"required,min=1,dive"`
}

func (h *Handler) SetAvailabilityBulk(c echo.Context) error {
	var req availabilityBulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	params := make([]AvailabilityParams, 0, len(req.Slots))
	for _, slot := range req.Slots {
		p, err := slot.toParams()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		params = append(params, p)
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	items, err := h.svc.SetAvailabilityBulk(c.Request().Context(), doctorID, params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, items)
}

func (h *Handler) ListAvailability(c echo.Context) error {
	var from, to time.Time
	var err error

	if v := c.QueryParam("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
	}
	if v := c.QueryParam("month"); v != "" {
		if from, err = time.Parse("2006-01", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid month, expected YYYY-MM")
		}
		to = from.AddDate(0, 1, 0)
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	items, err := h.svc.ListAvailability(c.Request().Context(), doctorID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Availability{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteAvailability(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	doctorID := auth.DoctorIDFromContext(c.Request().Context())
	if err := h.svc.DeleteAvailability(c.Request().Context(), doctorID, date); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no availability for that date")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
