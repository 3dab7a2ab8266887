package builder

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/simon020286/go-flightplan/config"
	"github.com/simon020286/go-flightplan/models"
)

// BuildAction creates every configured action and chains them into one.
// The chain stops at the first failing action.
func BuildAction(actions []config.ActionConfig, env *Env) (models.Action, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("no actions to build")
	}

	built := make([]models.Action, 0, len(actions))
	for i, a := range actions {
		action, err := CreateAction(a.Type, a.Params, env)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		built = append(built, action)
	}

	if len(built) == 1 {
		return built[0], nil
	}
	return models.Chain(built...), nil
}

// GenerateRunID generates a unique ID for a run
func GenerateRunID() string {
	return uuid.NewString()
}

// StringParam reads an optional string parameter
func StringParam(cfg map[string]any, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("'%s' must be a string, got %T", key, raw)
	}
	return s, nil
}

// RequiredStringParam reads a string parameter that must be present and non-empty
func RequiredStringParam(cfg map[string]any, key string) (string, error) {
	s, err := StringParam(cfg, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", models.ErrMissingConfig(key)
	}
	return s, nil
}
