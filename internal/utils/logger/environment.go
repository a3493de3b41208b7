package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwarvesf/escrow-history/internal/types/environments"
)

// configFor returns the zap config used for env. Unknown environments get
// the production config.
func configFor(env environments.Environment) zap.Config {
	switch env {
	case environments.Development:
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zap.Config{
			Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
			Development:       true,
			DisableCaller:     true,
			DisableStacktrace: true,
			Encoding:          "console",
			EncoderConfig:     enc,
			OutputPaths:       []string{"stdout"},
			ErrorOutputPaths:  []string{"stderr"},
		}
	case environments.Test:
		// discard everything
		return zap.Config{
			Level:         zap.NewAtomicLevelAt(zap.InfoLevel),
			Encoding:      "json",
			EncoderConfig: zap.NewProductionEncoderConfig(),
		}
	case environments.Staging:
		cfg := jsonConfig()
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
		return cfg
	default:
		return jsonConfig()
	}
}

func jsonConfig() zap.Config {
	return zap.Config{
		Level: zap.NewAtomicLevelAt(zap.InfoLevel),
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}
