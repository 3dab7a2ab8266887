package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon020286/go-flightplan/models"
)

func validPlan() *PlanConfig {
	return &PlanConfig{
		Name: "test-plan",
		Steps: []StepConfig{
			{ID: "takeoff", Delay: Duration(5 * time.Second), Actions: []ActionConfig{Action("takeoff", nil)}},
			{ID: "land", Delay: Duration(5 * time.Second), Actions: []ActionConfig{Action("land", nil)}},
		},
	}
}

func TestValidate_ValidPlan(t *testing.T) {
	assert.NoError(t, validPlan().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PlanConfig)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(p *PlanConfig) { p.Name = "" },
			wantErr: "plan name is required",
		},
		{
			name:    "no steps",
			mutate:  func(p *PlanConfig) { p.Steps = nil },
			wantErr: "must have at least one step",
		},
		{
			name:    "duplicate ids",
			mutate:  func(p *PlanConfig) { p.Steps[1].ID = "takeoff" },
			wantErr: "duplicate step id 'takeoff'",
		},
		{
			name:    "negative delay",
			mutate:  func(p *PlanConfig) { p.Steps[0].Delay = Duration(-time.Second) },
			wantErr: "delay must not be negative",
		},
		{
			name:    "negative timeout",
			mutate:  func(p *PlanConfig) { p.Steps[0].Timeout = Duration(-time.Second) },
			wantErr: "timeout must not be negative",
		},
		{
			name:    "bad policy",
			mutate:  func(p *PlanConfig) { p.Steps[0].OnError = "retry" },
			wantErr: "invalid error policy",
		},
		{
			name:    "step without actions",
			mutate:  func(p *PlanConfig) { p.Steps[0].Actions = nil },
			wantErr: "at least one action is required",
		},
		{
			name:    "setup action without type",
			mutate:  func(p *PlanConfig) { p.Setup = []ActionConfig{{}} },
			wantErr: "setup action 1",
		},
		{
			name:    "finally action without type",
			mutate:  func(p *PlanConfig) { p.Finally = []ActionConfig{{}} },
			wantErr: "finally action 1",
		},
		{
			name:    "negative connect timeout",
			mutate:  func(p *PlanConfig) { p.Device.ConnectTimeout = Duration(-time.Second) },
			wantErr: "connect_timeout must not be negative",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPlan()
			tc.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.wantErr), "got %v", err)
		})
	}
}

func TestValidate_MissingActionType(t *testing.T) {
	p := validPlan()
	p.Steps[0].Actions = []ActionConfig{{Params: map[string]any{}}}

	err := p.Validate()
	var missing *models.MissingConfigError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "action", missing.Key)
}
