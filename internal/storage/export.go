package storage

import (
	"encoding/json"
	"io"

	"github.com/armature-sim/armature/internal/sim"
)

type ExportData struct {
	Model      string             `json:"model"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Times      []float64          `json:"times"`
	Positions  [][]float64        `json:"positions"`
	Velocities [][]float64        `json:"velocities"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ExportJSON writes a whole run as a single JSON document.
func ExportJSON(w io.Writer, model, integrator string, dt, duration float64, result *sim.Result) error {
	data := ExportData{
		Model:      model,
		Integrator: integrator,
		Dt:         dt,
		Duration:   duration,
		Steps:      result.StepsTaken,
		Times:      result.Times,
		Positions:  make([][]float64, len(result.States)),
		Velocities: make([][]float64, len(result.States)),
		Metrics:    result.Metrics,
	}
	for i, st := range result.States {
		data.Positions[i] = st.Q
		data.Velocities[i] = st.V
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
