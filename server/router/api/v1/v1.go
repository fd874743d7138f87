package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/sera-ai/sera/internal/observability"
	"github.com/sera-ai/sera/internal/profile"
	"github.com/sera-ai/sera/server/middleware"
	"github.com/sera-ai/sera/server/push"
	"github.com/sera-ai/sera/server/service/assistant"
	"github.com/sera-ai/sera/store"
)

// APIV1Service exposes the assistant pipeline over HTTP and websocket.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Assistant *assistant.Service
	Registry  *push.Registry

	rateLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the v1 API surface.
func NewAPIV1Service(profile *profile.Profile, st *store.Store, svc *assistant.Service, registry *push.Registry) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Store:     st,
		Assistant: svc,
		Registry:  registry,
		// Generation requests hit the model API; keep them to 1/s with a
		// small burst per user.
		rateLimiter: middleware.NewRateLimiter(time.Second, 5),
	}
}

// RegisterRoutes wires the v1 routes onto the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/assist", s.Assist)
	g.GET("/users/:userID/cards", s.ListUserCards)
	g.POST("/cards/:uid/action", s.CardAction)
	g.GET("/users/:userID/sessions", s.ListUserSessions)
	g.GET("/users/:userID/preferences", s.GetUserPreferences)
	g.PUT("/users/:userID/preferences", s.UpdateUserPreferences)
	g.GET("/ws/:userID", s.WebSocket)
	g.GET("/metrics", s.Metrics)

	e.GET("/healthz", s.Health)
}

// GenerationRequest is the inbound payload for POST /api/v1/assist.
type GenerationRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Assist converts free text into suggestion cards.
// POST /api/v1/assist
func (s *APIV1Service) Assist(c echo.Context) error {
	var req GenerationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.UserID == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id and text are required"})
	}
	if !s.rateLimiter.Allow(req.UserID) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	}

	resp, err := s.Assistant.ProcessRequest(c.Request().Context(), req.UserID, req.Text)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "generation failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListUserCards returns the user's stored cards, most recent first.
// GET /api/v1/users/:userID/cards
func (s *APIV1Service) ListUserCards(c echo.Context) error {
	userID := c.Param("userID")
	cards, err := s.Assistant.ListCards(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list cards"})
	}
	return c.JSON(http.StatusOK, map[string]any{"cards": cards})
}

// CardActionRequest is the inbound payload for POST /api/v1/cards/:uid/action.
type CardActionRequest struct {
	UserID        string         `json:"user_id"`
	Action        string         `json:"action"` // accept, reject, modify, snooze
	Modifications map[string]any `json:"modifications,omitempty"`
}

// CardAction applies a user action to a card.
// POST /api/v1/cards/:uid/action
func (s *APIV1Service) CardAction(c echo.Context) error {
	cardUID := c.Param("uid")

	var req CardActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.UserID == "" || req.Action == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id and action are required"})
	}

	resp, err := s.Assistant.HandleCardAction(c.Request().Context(), req.UserID, cardUID, req.Action, req.Modifications)
	if err != nil {
		if errors.Is(err, assistant.ErrUnknownAction) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "action processing failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListUserSessions returns the user's generation sessions, most recent first.
// GET /api/v1/users/:userID/sessions
func (s *APIV1Service) ListUserSessions(c echo.Context) error {
	userID := c.Param("userID")
	sessions, err := s.Store.ListSessions(c.Request().Context(), &store.FindSession{UserID: &userID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions})
}

// GetUserPreferences returns the user's scheduling preference document, or an
// empty object when none has been stored.
// GET /api/v1/users/:userID/preferences
func (s *APIV1Service) GetUserPreferences(c echo.Context) error {
	userID := c.Param("userID")
	pref, err := s.Store.GetUserPreference(c.Request().Context(), &store.FindUserPreference{UserID: &userID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load preferences"})
	}

	preferences := json.RawMessage("{}")
	if pref != nil && pref.Preferences != "" {
		preferences = json.RawMessage(pref.Preferences)
	}
	return c.JSON(http.StatusOK, map[string]any{"user_id": userID, "preferences": preferences})
}

// UpdateUserPreferences replaces the user's preference document.
// PUT /api/v1/users/:userID/preferences
func (s *APIV1Service) UpdateUserPreferences(c echo.Context) error {
	userID := c.Param("userID")

	var doc map[string]any
	if err := c.Bind(&doc); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "preferences must be a JSON object"})
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "preferences must be a JSON object"})
	}

	pref, err := s.Store.UpsertUserPreference(c.Request().Context(), &store.UserPreference{
		UserID:      userID,
		Preferences: string(raw),
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save preferences"})
	}
	return c.JSON(http.StatusOK, map[string]any{"user_id": userID, "updated_ts": pref.UpdatedTs})
}

// WebSocket upgrades the connection and registers it for push delivery.
// The handler blocks reading until the client goes away, then removes the
// user's connections from the registry.
// GET /api/v1/ws/:userID
func (s *APIV1Service) WebSocket(c echo.Context) error {
	userID := c.Param("userID")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userID is required"})
	}

	websocket.Handler(func(ws *websocket.Conn) {
		conn := push.NewWebSocketConn(ws)
		s.Registry.Connect(conn, userID)
		defer func() {
			s.Registry.Disconnect(userID)
			s.rateLimiter.Forget(userID)
		}()

		// Drain inbound frames; the channel is push-only. Read error means
		// the client disconnected.
		for {
			var discard string
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}

// Metrics reports pipeline counters.
// GET /api/v1/metrics
func (s *APIV1Service) Metrics(c echo.Context) error {
	snapshot := observability.GlobalMetrics().SnapshotNow()
	return c.JSON(http.StatusOK, map[string]any{
		"generation_total":  snapshot.GenerationTotal,
		"fallback_total":    snapshot.FallbackTotal,
		"validation_drops":  snapshot.ValidationDrops,
		"delivery_failures": snapshot.DeliveryFailures,
		"avg_duration_ms":   snapshot.AvgDuration.Milliseconds(),
	})
}

// Health reports whether the active generation backend is reachable.
// GET /healthz
func (s *APIV1Service) Health(c echo.Context) error {
	status := s.Assistant.Health(c.Request().Context())
	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{"status": status})
}
