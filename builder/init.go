package builder

import (
	"embed"
	"fmt"
	"log/slog"
	"sync"
)

//go:embed plans/*.yaml
var embeddedPlans embed.FS

var (
	// globalPlanLibrary is the global plan library, loaded on first use
	globalPlanLibrary *PlanLibrary
	libraryOnce       sync.Once
)

// GetGlobalPlanLibrary returns the library of embedded and user plans
func GetGlobalPlanLibrary() *PlanLibrary {
	libraryOnce.Do(func() {
		lib, err := loadLibrary(slog.Default())
		if err != nil {
			slog.Warn("failed to load plan library", "error", err)
		}
		globalPlanLibrary = lib
	})
	return globalPlanLibrary
}

// ReloadPlans reloads all plans (useful after editing user plans)
func ReloadPlans() error {
	lib, err := loadLibrary(slog.Default())
	if err != nil {
		return err
	}

	// Make sure the once has fired so it does not overwrite the reload
	libraryOnce.Do(func() {})
	globalPlanLibrary = lib

	slog.Info("reloaded plans", "count", lib.Count(), "plans", lib.List())
	return nil
}

// EmbeddedPlanLibrary returns a library holding only the built-in plans
func EmbeddedPlanLibrary() (*PlanLibrary, error) {
	lib := NewPlanLibrary()
	if err := lib.LoadPlansFromFS(embeddedPlans, "plans"); err != nil {
		return nil, fmt.Errorf("failed to load embedded plans: %w", err)
	}
	return lib, nil
}

// loadLibrary loads embedded plans, then user plans on top of them
func loadLibrary(logger *slog.Logger) (*PlanLibrary, error) {
	lib, err := EmbeddedPlanLibrary()
	if err != nil {
		return NewPlanLibrary(), err
	}

	userPath := GetPlansPath()
	if err := lib.LoadPlansFromDirectory(userPath, logger); err != nil {
		return lib, fmt.Errorf("failed to load user plans from %s: %w", userPath, err)
	}
	return lib, nil
}
