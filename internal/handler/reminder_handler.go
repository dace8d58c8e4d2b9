package handler

import (
	"net/http"
	"time"

	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReminderHandler struct {
	reminderService service.ReminderService
	secret          []byte
}

func NewReminderHandler(reminderService service.ReminderService, secret []byte) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService, secret: secret}
}

func (h *ReminderHandler) RegisterRoutes(router *gin.RouterGroup) {
	reminders := router.Group("/api/reminders")
	{
		reminders.POST("", middleware.RequireRole(h.secret, middleware.AnyRole...), h.Schedule)
		reminders.GET("/unread", middleware.RequireRole(h.secret, middleware.AnyRole...), h.ListUnread)
		reminders.GET("/unread/count", middleware.RequireRole(h.secret, middleware.AnyRole...), h.UnreadCount)
		reminders.POST("/read", middleware.RequireRole(h.secret, middleware.AnyRole...), h.MarkRead)
		reminders.GET("/due", middleware.RequireRole(h.secret, middleware.RoleAdmin), h.ListDue)
		reminders.POST("/:notificationId/sent", middleware.RequireRole(h.secret, middleware.RoleAdmin), h.MarkSent)
	}
}

// Schedule creates a reminder for the caller
// @Summary      Schedule reminder
// @Description  Stores a filing reminder; a notification_id that already exists is rejected
// @Tags         reminders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ScheduleReminderRequest  true  "Reminder"
// @Success      201      {object}  response.Response{data=service.ReminderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/reminders [post]
func (h *ReminderHandler) Schedule(c *gin.Context) {
	var req service.ScheduleReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	reminder, err := h.reminderService.Schedule(c.Request.Context(), middleware.UserRef(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, reminder))
}

// ListUnread returns the caller's unread reminders, earliest due first
// @Summary      List unread reminders
// @Tags         reminders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ReminderResponse}
// @Router       /api/reminders/unread [get]
func (h *ReminderHandler) ListUnread(c *gin.Context) {
	reminders, err := h.reminderService.ListUnread(c.Request.Context(), middleware.UserRef(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, reminders))
}

// UnreadCount returns how many unread reminders the caller has
// @Summary      Count unread reminders
// @Tags         reminders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/reminders/unread/count [get]
func (h *ReminderHandler) UnreadCount(c *gin.Context) {
	count, err := h.reminderService.UnreadCount(c.Request.Context(), middleware.UserRef(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"unread_count": count}))
}

// MarkRead flags the caller's reminders as read
// @Summary      Mark reminders read
// @Description  Idempotent; unknown or already-read ids are ignored
// @Tags         reminders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MarkReadRequest  true  "Notification ids"
// @Success      200      {object}  response.Response{data=service.MarkReadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/reminders/read [post]
func (h *ReminderHandler) MarkRead(c *gin.Context) {
	var req service.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.reminderService.MarkRead(c.Request.Context(), middleware.UserRef(c), req.NotificationIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListDue returns unsent reminders due on or before a date
// @Summary      List due reminders
// @Tags         reminders
// @Security     BearerAuth
// @Produce      json
// @Param        date  query     string  false  "YYYY-MM-DD, defaults to today"
// @Success      200   {object}  response.Response{data=[]service.ReminderResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/reminders/due [get]
func (h *ReminderHandler) ListDue(c *gin.Context) {
	var asOf time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)"))
			return
		}
		asOf = parsed
	}

	reminders, err := h.reminderService.ListDue(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, reminders))
}

// MarkSent records delivery of a reminder
// @Summary      Mark reminder sent
// @Tags         reminders
// @Security     BearerAuth
// @Produce      json
// @Param        notificationId  path      string  true  "Notification id"
// @Success      200             {object}  response.Response{data=object}
// @Failure      404             {object}  response.Response
// @Router       /api/reminders/{notificationId}/sent [post]
func (h *ReminderHandler) MarkSent(c *gin.Context) {
	marked, err := h.reminderService.MarkSent(c.Request.Context(), c.Param("notificationId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"marked": marked}))
}
