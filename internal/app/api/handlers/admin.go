package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/service/audit_log"
	"github.com/fatflowers/entitlement/internal/app/service/migration"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
)

const maxListLimit = 500

// queryLimit reads the limit query parameter. Zero means the store default.
func queryLimit(c *gin.Context) (int, error) {
	v := c.Query("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxListLimit {
		return 0, errors.New("invalid limit")
	}
	return n, nil
}

// errorCode picks the envelope code for err.
func errorCode(err error) response.APIResponseCode {
	if apperrors.KindOf(err) == apperrors.KindValidation {
		return response.APIResponseCodeBadRequest
	}
	return response.APIResponseCodeError
}

// @Summary      List Validation Logs (Admin)
// @Description  Returns a user's receipt validation log, newest first.
// @Tags         Admin
// @Produce      json
// @Param        user_id query string true "User id"
// @Param        limit query int false "Maximum number of entries"
// @Success      200  {object}  handlers.RespValidationLogs
// @Router       /api/v1/admin/validation_logs [get]
func ApiListValidationLogs(svc *audit_log.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		limit, err := queryLimit(c)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		logs, err := svc.ListValidationLogs(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(logs))
	}
}

// @Summary      List Notifications (Admin)
// @Description  Returns webhook notification records for one subscription or user, newest first.
// @Tags         Admin
// @Produce      json
// @Param        original_transaction_id query string false "Original transaction id"
// @Param        user_id query string false "User id"
// @Param        limit query int false "Maximum number of entries"
// @Success      200  {object}  handlers.RespNotifications
// @Router       /api/v1/admin/notifications [get]
func ApiListNotifications(svc *audit_log.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := audit_log.NotificationQuery{
			OriginalTransactionID: c.Query("original_transaction_id"),
			UserID:                c.Query("user_id"),
		}
		if q.OriginalTransactionID == "" && q.UserID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing original_transaction_id or user_id"))
			return
		}
		limit, err := queryLimit(c)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		q.Limit = limit
		records, err := svc.ListNotifications(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](errorCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(records))
	}
}

// @Summary      Run Subscription Backfill (Admin)
// @Description  Fills missing subscription fields with defaults. Safe to re-run.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespMigration
// @Router       /api/v1/admin/migrate [post]
func ApiMigrate(svc *migration.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := svc.Migrate(c.Request.Context())
		if !res.Success {
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeError, res))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Audit Subscription Data (Admin)
// @Description  Counts stored records that break the subscription rules.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespAuditReport
// @Router       /api/v1/admin/audit [get]
func ApiAudit(svc *migration.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.Audit(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(report))
	}
}

// @Summary      Get Subscription Statistics (Admin)
// @Description  Without a body, returns user counts by tier/status and the entitled user count. A body selects data items and filters.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest false "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/v1/admin/statistics [get]
// @Router       /api/v1/admin/statistics [post]
func ApiGetStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if c.Request.Method == http.MethodPost {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](errorCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, audit *audit_log.Service, mig *migration.Service, stats *statistics.Service) {
	r.GET("/validation_logs", ApiListValidationLogs(audit))
	r.GET("/notifications", ApiListNotifications(audit))
	r.POST("/migrate", ApiMigrate(mig))
	r.GET("/audit", ApiAudit(mig))
	r.GET("/statistics", ApiGetStatistic(stats))
	r.POST("/statistics", ApiGetStatistic(stats))
}
