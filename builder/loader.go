package builder

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/simon020286/go-flightplan/config"
)

// PlanLibrary maintains all loaded flight plans by name
type PlanLibrary struct {
	mu    sync.RWMutex
	plans map[string]*config.PlanConfig
}

// NewPlanLibrary creates an empty library
func NewPlanLibrary() *PlanLibrary {
	return &PlanLibrary{
		plans: make(map[string]*config.PlanConfig),
	}
}

// Register adds a plan, replacing any plan with the same name
func (pl *PlanLibrary) Register(plan *config.PlanConfig) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.plans[plan.Name] = plan
	return nil
}

// Get returns a plan by name
func (pl *PlanLibrary) Get(name string) (*config.PlanConfig, bool) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	plan, exists := pl.plans[name]
	return plan, exists
}

// List returns all plan names, sorted
func (pl *PlanLibrary) List() []string {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	names := make([]string, 0, len(pl.plans))
	for name := range pl.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of plans
func (pl *PlanLibrary) Count() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.plans)
}

// LoadPlansFromFS loads every .yaml/.yml file under dir of fsys
func (pl *PlanLibrary) LoadPlansFromFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read plans directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		filePath := filepath.ToSlash(filepath.Join(dir, entry.Name()))
		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to read plan file %s: %w", filePath, err)
		}

		if err := pl.loadPlanFromBytes(data, entry.Name()); err != nil {
			return fmt.Errorf("failed to load plan %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// LoadPlansFromDirectory loads plans from a filesystem directory.
// A missing directory is not an error. Broken files are skipped with a
// warning so one bad plan does not hide the others.
func (pl *PlanLibrary) LoadPlansFromDirectory(dirPath string, logger *slog.Logger) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read plans directory %s: %w", dirPath, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filePath, err)
		}

		if err := pl.loadPlanFromBytes(data, entry.Name()); err != nil {
			logger.Warn("skipping plan", "file", filePath, "error", err)
			continue
		}
	}

	return nil
}

// loadPlanFromBytes parses a plan, naming it after the file when unnamed
func (pl *PlanLibrary) loadPlanFromBytes(data []byte, filename string) error {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	plan, err := config.ParseNamed(data, name)
	if err != nil {
		return err
	}
	return pl.Register(plan)
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// GetPlansPath returns the path to the user plans directory
// Checks environment variable first, then uses default directory
func GetPlansPath() string {
	if path := os.Getenv("FLIGHTPLAN_PATH"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./plans"
	}

	return filepath.Join(homeDir, ".go-flightplan", "plans")
}
