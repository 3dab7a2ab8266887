package actions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/models"
)

// @action name=log category=flow description=Writes a status line to the console log
type LogConfig struct {
	Message string `action:"name=message,required,desc=Text of the status line"`
	Level   string `action:"name=level,default=info,desc=debug info warn or error"`
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", s)
	}
}

func init() {
	builder.RegisterActionType("log", func(cfg map[string]any, env *builder.Env) (models.Action, error) {
		message, err := builder.RequiredStringParam(cfg, "message")
		if err != nil {
			return nil, err
		}
		levelName, err := builder.StringParam(cfg, "level")
		if err != nil {
			return nil, err
		}
		level, err := parseLevel(levelName)
		if err != nil {
			return nil, err
		}

		logger := env.Logger
		return func(ctx context.Context) error {
			logger.Log(ctx, level, message)
			return nil
		}, nil
	})
}
