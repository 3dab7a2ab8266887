package actions

import (
	"context"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/models"
)

// @action name=exit category=flow description=Ends the sequence; later steps never fire
type ExitConfig struct {
	Message string `action:"name=message,desc=Status line written before exiting"`
}

func init() {
	builder.RegisterActionType("exit", func(cfg map[string]any, env *builder.Env) (models.Action, error) {
		message, err := builder.StringParam(cfg, "message")
		if err != nil {
			return nil, err
		}

		logger := env.Logger
		return func(ctx context.Context) error {
			if message != "" {
				logger.InfoContext(ctx, message)
			}
			return models.ErrExit
		}, nil
	})
}
