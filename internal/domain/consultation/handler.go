package consultation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/consult/consult/internal/platform/auth"
	"github.com/consult/consult/internal/platform/eventstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – physician, admin, auditor
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "auditor"))
	readGroup.GET("/consultations/:id", h.GetConsultation)
	readGroup.GET("/consultations/:id/soap", h.GetSOAP)

	// Write endpoints – physician, admin
	writeGroup := api.Group("", auth.RequireRole("admin", "physician"))
	writeGroup.POST("/consultations", h.StartConsultation)
	writeGroup.POST("/consultations/:id/messages", h.PostMessage)
	writeGroup.POST("/consultations/:id/events", h.AppendEvent)
	writeGroup.POST("/consultations/:id/commit", h.Commit)
	writeGroup.POST("/consultations/:id/retry", h.Retry)
}

type startRequest struct {
	Patient Demographics `json:"patient"`
}

type startResponse struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	SessionID      uuid.UUID `json:"session_id"`
	State          State     `json:"state"`
}

func (h *Handler) StartConsultation(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	agg, err := h.svc.Start(c.Request().Context(), userID, req.Patient)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, startResponse{
		ConsultationID: agg.ID,
		SessionID:      agg.SessionID,
		State:          agg.State,
	})
}

type messageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) PostMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.HandleMessage(c.Request().Context(), id, req.Text)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type appendEventRequest struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func (h *Handler) AppendEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req appendEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EventType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event_type is required")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	event, err := h.svc.AppendEvent(c.Request().Context(), id, req.EventType, req.Payload, userID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

func (h *Handler) Commit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	result, err := h.svc.Commit(c.Request().Context(), id, userID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Retry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	agg, err := h.svc.Retry(c.Request().Context(), id)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"consultation_id": agg.ID,
		"state":           agg.State,
	})
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	agg, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, agg)
}

func (h *Handler) GetSOAP(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	view, err := h.svc.View(c.Request().Context(), id)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// mapError translates domain errors to HTTP status codes. Messages stay
// structural; payload contents never reach a response through this path.
func (h *Handler) mapError(err error) error {
	var commitErr *CommitError
	if errors.As(err, &commitErr) {
		return echo.NewHTTPError(http.StatusPreconditionFailed, commitErr.Error())
	}
	var transitionErr *InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return echo.NewHTTPError(http.StatusConflict, transitionErr.Error())
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	}
	switch {
	case errors.Is(err, eventstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case errors.Is(err, eventstore.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "concurrent write detected, retry the request")
	case errors.Is(err, ErrConsultationFrozen):
		return echo.NewHTTPError(http.StatusLocked, "consultation frozen due to an audit integrity violation")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
