package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/teamtide/workforce-backend/internal/middleware"
	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.ListNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.GET("/notifications/preferences", h.GetPreferences)
	g.PUT("/notifications/preferences", h.UpdatePreferences)
	g.POST("/notifications/test", h.SendTest)
}

// ListNotifications returns a paginated, filterable notification page.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	take, _ := strconv.Atoi(c.QueryParam("take"))
	query := models.ListNotificationsQuery{
		Skip:       skip,
		Take:       take,
		UnreadOnly: c.QueryParam("unreadOnly") == "true",
	}
	if raw := c.QueryParam("type"); raw != "" {
		t := models.NotificationType(raw)
		if !models.IsValidNotificationType(t) {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown notification type")
		}
		query.Type = &t
	}

	page, err := h.notificationService.ListNotifications(c.Request().Context(), claims.OrganisationID, claims.UserID, query)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": page})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationService.UnreadCount(c.Request().Context(), claims.OrganisationID, claims.UserID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks a notification as read; repeating the call is a no-op.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notification, err := h.notificationService.MarkAsRead(c.Request().Context(), claims.OrganisationID, claims.UserID, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": notification})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.notificationService.MarkAllAsRead(c.Request().Context(), claims.OrganisationID, claims.UserID); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// GetPreferences returns every notification type with its effective toggles.
func (h *NotificationHandler) GetPreferences(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	preferences, err := h.notificationService.GetPreferences(c.Request().Context(), claims.OrganisationID, claims.UserID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"preferences": preferences}})
}

// UpdatePreferences fully replaces the toggles for every listed type.
func (h *NotificationHandler) UpdatePreferences(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdatePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.notificationService.UpdatePreferences(c.Request().Context(), claims.OrganisationID, claims.UserID, req.Preferences); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// SendTest pushes a test notification through the pipeline for the caller.
func (h *NotificationHandler) SendTest(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	notification, err := h.notificationService.SendTestNotification(c.Request().Context(), claims.OrganisationID, claims.UserID, req.Channels)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": notification})
}
