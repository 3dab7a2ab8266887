package builder

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/simon020286/go-flightplan/device"
	"github.com/simon020286/go-flightplan/models"
)

// Env is what an action may use at run time
type Env struct {
	Device device.Device
	Logger *slog.Logger
}

// ActionFactory is a function that creates an Action from a configuration
type ActionFactory func(config map[string]any, env *Env) (models.Action, error)

var (
	// registry contains all registered factories by action type
	registry = make(map[string]ActionFactory)
	mu       sync.RWMutex
)

// RegisterActionType registers a factory for an action type
// This function is called by init() in action packages
func RegisterActionType(actionType string, factory ActionFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[actionType] = factory
}

// GetActionFactory returns the factory for an action type
func GetActionFactory(actionType string) (ActionFactory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, exists := registry[actionType]
	if !exists {
		return nil, fmt.Errorf("unknown action type: %s", actionType)
	}
	return factory, nil
}

// ListActionTypes returns all registered action types, sorted
func ListActionTypes() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CreateAction creates an action based on type and configuration
func CreateAction(actionType string, config map[string]any, env *Env) (models.Action, error) {
	factory, err := GetActionFactory(actionType)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = map[string]any{}
	}
	if env == nil {
		env = &Env{}
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	action, err := factory(config, env)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", actionType, err)
	}
	return action, nil
}
