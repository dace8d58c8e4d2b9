package handler

import (
	"net/http"
	"time"

	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
	secret     []byte
}

func NewTaxHandler(taxService service.TaxService, secret []byte) *TaxHandler {
	return &TaxHandler{taxService: taxService, secret: secret}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax")
	{
		tax.POST("/calculate", middleware.RequireRole(h.secret, middleware.AnyRole...), h.CalculateTax)
		tax.POST("/summary", middleware.RequireRole(h.secret, middleware.AnyRole...), h.Summarize)
		tax.GET("/schedules", middleware.RequireRole(h.secret, middleware.AnyRole...), h.ListSchedules)
		tax.GET("/schedules/:role/active", middleware.RequireRole(h.secret, middleware.AnyRole...), h.GetActiveSchedule)
		tax.GET("/schedules/:role/:version", middleware.RequireRole(h.secret, middleware.AnyRole...), h.GetSchedule)
		tax.POST("/policies", middleware.RequireRole(h.secret, middleware.RoleAdmin), h.PublishPolicy)
	}
}

// CalculateTax computes the liability for one regime
// @Summary      Calculate tax
// @Description  Resolves the schedule in effect on as_of and computes PAYE, small business, CIT or VAT with an explanation trail
// @Tags         tax
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculateTaxRequest  true  "Calculation request"
// @Success      200      {object}  response.Response{data=service.TaxResultResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/tax/calculate [post]
func (h *TaxHandler) CalculateTax(c *gin.Context) {
	var req service.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.taxService.CalculateTax(c.Request.Context(), req, middleware.UserRef(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Summarize computes annual and monthly PAYE, CIT and optionally VAT in one call
// @Summary      Tax summary
// @Tags         tax
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaxSummaryRequest  true  "Summary request"
// @Success      200      {object}  response.Response{data=service.TaxSummaryResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tax/summary [post]
func (h *TaxHandler) Summarize(c *gin.Context) {
	var req service.TaxSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	summary, err := h.taxService.Summarize(c.Request.Context(), req, middleware.UserRef(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ListSchedules returns published rate schedules, newest first
// @Summary      List rate schedules
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/tax/schedules [get]
func (h *TaxHandler) ListSchedules(c *gin.Context) {
	params := pagination.Parse(c)

	schedules, total, err := h.taxService.ListSchedules(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Envelope("schedules", schedules, total, params)))
}

// GetSchedule returns one role's schedule for a policy version
// @Summary      Get rate schedule
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        role     path      string  true  "Taxpayer role (personal, company, vat)"
// @Param        version  path      string  true  "Policy version"
// @Success      200      {object}  response.Response{data=service.ScheduleResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/tax/schedules/{role}/{version} [get]
func (h *TaxHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.taxService.GetSchedule(c.Request.Context(), c.Param("role"), c.Param("version"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, schedule))
}

// GetActiveSchedule returns the schedule in effect for a role on a date
// @Summary      Get active rate schedule
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        role  path      string  true   "Taxpayer role (personal, company, vat)"
// @Param        date  query     string  false  "YYYY-MM-DD, defaults to today"
// @Success      200   {object}  response.Response{data=service.ScheduleResponse}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/tax/schedules/{role}/active [get]
func (h *TaxHandler) GetActiveSchedule(c *gin.Context) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)"))
			return
		}
		date = parsed
	}

	schedule, err := h.taxService.GetActiveSchedule(c.Request.Context(), c.Param("role"), date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, schedule))
}

// PublishPolicy publishes a new policy version
// @Summary      Publish tax policy
// @Description  Inserts schedules, levies and VAT categories for one version atomically, closing open-ended predecessors
// @Tags         tax
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PublishPolicyRequest  true  "Policy version"
// @Success      201      {object}  response.Response{data=service.PublishPolicyResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax/policies [post]
func (h *TaxHandler) PublishPolicy(c *gin.Context) {
	var req service.PublishPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.taxService.PublishPolicy(c.Request.Context(), req, middleware.UserRef(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
