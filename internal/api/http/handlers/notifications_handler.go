package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rental-session/internal/api/dto"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/mockapi"
)

const defaultPageSize = 10

// NotificationsHandler exposes notification and preference endpoints.
type NotificationsHandler struct {
	notifications *mockapi.Notifications
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *mockapi.Notifications) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// targetUser resolves which user a request acts on. Only admins may act for others.
func targetUser(c *fiber.Ctx, requested int64) (int64, error) {
	p, err := principal(c)
	if err != nil {
		return 0, err
	}
	if requested == 0 || requested == p.User.ID {
		return p.User.ID, nil
	}
	if p.User.Role != domain.RoleAdmin {
		return 0, fiber.NewError(http.StatusForbidden, "not allowed to access another user's notifications")
	}
	return requested, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// List handles GET /notifications?page=&limit=&userId=.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	userID, err := targetUser(c, int64(c.QueryInt("userId", 0)))
	if err != nil {
		return err
	}
	page, err := h.notifications.List(c.UserContext(), userID, c.QueryInt("page", 1), c.QueryInt("limit", defaultPageSize))
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse[*domain.NotificationPage]{Data: page})
}

// Create handles POST /notifications and pushes the result to the owner's sockets.
func (h *NotificationsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	userID, err := targetUser(c, req.UserID)
	if err != nil {
		return err
	}
	req.UserID = userID
	item, err := h.notifications.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.DataResponse[*domain.Notification]{Data: item})
}

// Delete handles DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifications.Delete(c.UserContext(), p.User.ID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkAsRead handles PATCH /notifications/mark-as-read/:id.
func (h *NotificationsHandler) MarkAsRead(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.notifications.MarkAsRead(c.UserContext(), p.User.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse[*domain.Notification]{Data: item})
}

// MarkAllAsRead handles PATCH /notifications/mark-all-as-read.
func (h *NotificationsHandler) MarkAllAsRead(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.notifications.MarkAllAsRead(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse[[]domain.Notification]{Data: items})
}

// Preferences handles GET /notifications/preference/:userId.
func (h *NotificationsHandler) Preferences(c *fiber.Ctx) error {
	requested, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	userID, err := targetUser(c, requested)
	if err != nil {
		return err
	}
	prefs, err := h.notifications.Preferences(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse[*domain.NotificationPreferences]{Data: prefs})
}

// SavePreferences handles PATCH /notifications/preferences.
func (h *NotificationsHandler) SavePreferences(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	items, err := h.notifications.SavePreferences(c.UserContext(), p.User.ID, req.Preferences)
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse[[]domain.PreferenceItem]{Data: items})
}
