package analytics

import (
	"net/http"
	"strconv"

	"go-safety/internal/daterange"
	"go-safety/internal/shared/apperror"
	"go-safety/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("analytics.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("analytics.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("analytics request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) bindRange(c *gin.Context) (daterange.Query, bool) {
	var q daterange.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return q, false
	}
	return q, true
}

func (h *Handler) Dashboard(c *gin.Context) {
	q, ok := h.bindRange(c)
	if !ok {
		return
	}

	resp, err := h.service.Dashboard(c.Request.Context(), q)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) AreaDefaulters(c *gin.Context) {
	h.aggregate(c, DimensionArea)
}

func (h *Handler) DepartmentAnalytics(c *gin.Context) {
	h.aggregate(c, DimensionDepartment)
}

func (h *Handler) EquipmentBreakdown(c *gin.Context) {
	h.aggregate(c, DimensionEquipment)
}

// ByDimension serves /analytics/:dimension for any supported dimension.
func (h *Handler) ByDimension(c *gin.Context) {
	dim, err := ParseDimension(c.Param("dimension"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	h.aggregate(c, dim)
}

func (h *Handler) aggregate(c *gin.Context, dim Dimension) {
	q, ok := h.bindRange(c)
	if !ok {
		return
	}
	h.logger.Debug("http analytics aggregate",
		zap.String("dimension", string(dim)),
		zap.String("range", q.Range),
	)

	rep, err := h.service.Aggregate(c.Request.Context(), dim, q)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rep, nil)
}

func (h *Handler) MonthlyTrend(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			h.writeServiceError(c, ErrInvalidYear)
			return
		}
		year = y
	}

	rep, err := h.service.MonthlyTrend(c.Request.Context(), year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rep, nil)
}

func (h *Handler) DailyTrend(c *gin.Context) {
	q, ok := h.bindRange(c)
	if !ok {
		return
	}
	dense := c.Query("fill") == "dense"

	rep, err := h.service.DailyTrend(c.Request.Context(), q, dense)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rep, nil)
}
