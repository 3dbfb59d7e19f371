package handlers

import (
	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/app/service/migration"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	subsvc "github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespSubscriptionStatus wraps subscription.Status in the standard envelope.
type RespSubscriptionStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subsvc.Status            `json:"data"`
}

// RespValidationLogs wraps a list of validation log entries in the standard envelope.
type RespValidationLogs struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    []*models.SubscriptionValidationLog `json:"data"`
}

// RespNotifications wraps a list of notification records in the standard envelope.
type RespNotifications struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    []*models.AppStoreNotification `json:"data"`
}

type RespMigration struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    migration.Result         `json:"data"`
}

type RespAuditReport struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    repository.AuditReport   `json:"data"`
}

// RespStatistic wraps StatisticResponse in the standard envelope.
type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}
