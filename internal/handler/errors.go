package handler

import (
	"errors"
	"net/http"

	"taxengine/internal/logger"
	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/service"
	"taxengine/internal/tax"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

var statusByError = []struct {
	err    error
	status int
	code   string
}{
	{tax.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{tax.ErrMissingDiscriminator, http.StatusBadRequest, "missing_discriminator"},
	{tax.ErrUnknownVATCategory, http.StatusBadRequest, "unknown_vat_category"},
	{tax.ErrUnsupportedRegime, http.StatusBadRequest, "unsupported_regime"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{model.ErrInvalidSchedule, http.StatusBadRequest, "invalid_schedule"},
	{tax.ErrNoApplicableSchedule, http.StatusNotFound, "no_applicable_schedule"},
	{tax.ErrScheduleNotFound, http.StatusNotFound, "schedule_not_found"},
	{repository.ErrReminderNotFound, http.StatusNotFound, "reminder_not_found"},
	{repository.ErrDuplicateNotification, http.StatusConflict, "duplicate_notification"},
	{service.ErrPolicyVersionExists, http.StatusConflict, "policy_version_exists"},
	{service.ErrPolicyPeriodConflict, http.StatusConflict, "policy_period_conflict"},
	{tax.ErrScheduleUnavailable, http.StatusServiceUnavailable, "schedule_unavailable"},
}

// statusFor maps a service error onto its HTTP status and error code; anything unrecognised is a 500
func statusFor(err error) (int, string) {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.L.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, response.Fail(status, code, err.Error()))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, "invalid_input", "Invalid request payload: "+err.Error()))
}
