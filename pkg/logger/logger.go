package logger

import (
	"fmt"

	"github.com/fatflowers/entitlement/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON in every environment, ISO8601 "time" field, level from
// log.level. Dev adds caller stack traces on warnings.
func New(cfg *config.Config) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.TimeKey = "time"

	if cfg.Log.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Log.Level, err)
		}
		zc.Level = lvl
	}
	if cfg.Env == config.EnvDev {
		zc.Development = true
	}

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().With("env", string(cfg.Env)), nil
}

var Module = fx.Options(
	fx.Provide(New),
)
