package app

import (
	"time"

	"github.com/fatflowers/entitlement/internal/app/api/server"
	"github.com/fatflowers/entitlement/internal/app/repository"
	"github.com/fatflowers/entitlement/internal/app/service/audit_log"
	"github.com/fatflowers/entitlement/internal/app/service/migration"
	notificationhandler "github.com/fatflowers/entitlement/internal/app/service/notification_handler"
	"github.com/fatflowers/entitlement/internal/app/service/receipt"
	"github.com/fatflowers/entitlement/internal/app/service/schema"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	"github.com/fatflowers/entitlement/internal/app/service/subscription"
	"github.com/fatflowers/entitlement/internal/platform/apple/apple_signature"
	"github.com/fatflowers/entitlement/internal/platform/db"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/logger"
	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// CoreModule wires storage and the subscription services without the HTTP server.
var CoreModule = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	repository.Module,
	schema.Module,
	subscription.Module,
	audit_log.Module,
	migration.Module,
)

var Module = fx.Options(
	CoreModule,
	server.Module,
	apple_signature.Module,
	notificationhandler.Module,
	receipt.Module,
	statistics.Module,
)
