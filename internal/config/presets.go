package config

import "github.com/armature-sim/armature/internal/contact"

// Presets are named, ready-to-run configurations per catalog model.
var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.001, Duration: 10,
			Q0: []float64{0.2},
		},
		"horizontal": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.001, Duration: 10,
			Q0: []float64{1.5707963267948966},
		},
		"spinning": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.001, Duration: 20,
			Q0: []float64{0.1}, V0: []float64{8},
		},
	},
	"double-pendulum": {
		"gentle": {
			Model: "double-pendulum", Integrator: "rk4", Dt: 0.001, Duration: 20,
			Q0: []float64{0.3, 0.3},
		},
		"chaos": {
			Model: "double-pendulum", Integrator: "rk4", Dt: 0.0005, Duration: 30,
			Q0: []float64{3, 3},
		},
	},
	"cartpole": {
		"fall": {
			Model: "cartpole", Integrator: "rk4", Dt: 0.001, Duration: 5,
			Q0: []float64{0, 0.1},
		},
	},
	"free-box": {
		"drop": {
			Model: "free-box", Integrator: "semi-implicit-euler", Dt: 0.0005, Duration: 3,
			Q0: []float64{0, 0, 0.5, 1, 0, 0, 0},
		},
		"toss": {
			Model: "free-box", Integrator: "semi-implicit-euler", Dt: 0.0005, Duration: 3,
			Q0: []float64{0, 0, 0.5, 1, 0, 0, 0},
			V0: []float64{3, 0, 0, 1, 0, 2},
		},
	},
	"spherical-pendulum": {
		"orbit": {
			Model: "spherical-pendulum", Integrator: "rk4", Dt: 0.001, Duration: 10,
			V0: []float64{0.5, 0, 0.5},
		},
	},
}

// GetPreset returns the named preset with unset fields filled from the
// defaults, or nil when unknown.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := *cfg
	if out.Dt == 0 {
		out.Dt = DefaultDt
	}
	if out.Duration == 0 {
		out.Duration = DefaultDuration
	}
	if out.Contact == (contact.SoftParams{}) {
		out.Contact = contact.DefaultSoftParams()
	}
	if out.Limits == (contact.LimitParams{}) {
		out.Limits = contact.DefaultLimitParams()
	}
	return &out
}

// ListPresets lists preset names for a model, or nil when unknown.
func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
