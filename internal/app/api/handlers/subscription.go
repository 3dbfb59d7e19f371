package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/internal/app/service/receipt"
	subsvc "github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
)

// @Summary      Validate Receipt
// @Description  Verifies an App Store receipt and merges the resulting subscription onto the caller's record.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body receipt.ValidateRequest true "Receipt validation request"
// @Success      200  {object}  receipt.ValidateResult
// @Failure      400  {object}  receipt.ValidateResult
// @Failure      401  {object}  receipt.ValidateResult
// @Failure      500  {object}  receipt.ValidateResult
// @Router       /api/v1/subscription/validate_receipt [post]
func ApiValidateReceipt(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req receipt.ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, &receipt.ValidateResult{Error: "Invalid request body", Details: err.Error()})
			return
		}

		ctx := c.Request.Context()
		res, err := svc.Validate(ctx, logctx.UserID(ctx), &req)
		if err != nil {
			status := apperrors.HTTPStatus(err)
			msg := apperrors.MessageOf(err)
			if status >= http.StatusInternalServerError || msg == "" {
				status, msg = http.StatusInternalServerError, internalServerError
			}
			c.JSON(status, &receipt.ValidateResult{Error: msg})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Subscription Status
// @Description  Returns the caller's subscription record and whether premium features are unlocked.
// @Tags         Subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscriptionStatus
// @Router       /api/v1/subscription/status [get]
func ApiSubscriptionStatus(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		st, err := sub.GetStatus(ctx, logctx.UserID(ctx))
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc *receipt.Service, sub *subsvc.Service) {
	r.POST("/validate_receipt", ApiValidateReceipt(svc))
	r.GET("/status", ApiSubscriptionStatus(sub))
}
