package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/armature-sim/armature/internal/analysis"
	"github.com/armature-sim/armature/internal/config"
	"github.com/armature-sim/armature/internal/contact"
	"github.com/armature-sim/armature/internal/control"
	"github.com/armature-sim/armature/internal/integrators"
	"github.com/armature-sim/armature/internal/metrics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/models"
	"github.com/armature-sim/armature/internal/optim"
	"github.com/armature-sim/armature/internal/sim"
	"github.com/armature-sim/armature/internal/storage"
	"github.com/armature-sim/armature/internal/tui"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	integrator string
	q0         []float64
	v0         []float64
	configFile string
	preset     string
	modelFile  string
	terrain    float64
	friction   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "armature",
		Short: "rigid-body simulation of articulated mechanisms",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".armature", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().String("col", "q0", "column to plot (q<i> or v<i>)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase-space scatter of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().Int("q", 0, "position index")
	phaseCmd.Flags().Int("v", 0, "velocity index")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.ExactArgs(1),
		RunE:  lyapunovRun,
	}
	addRunFlags(lyapunovCmd)

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a stored run as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a stored run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run with a live terminal rendering",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [model]",
		Short: "interactive real-time view (pause, reset)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	addRunFlags(watchCmd)

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.Names() {
				fmt.Println(name)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets for a model",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			names := config.ListPresets(args[0])
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator...]",
		Short: "compare integrators by energy drift",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid-search PD gains for a joint-space setpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  tuneController,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().Float64("target", 0, "setpoint for the first coordinate")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, phaseCmd, lyapunovCmd,
		exportCSVCmd, exportJSONCmd, liveCmd, watchCmd, modelsCmd,
		presetsCmd, compareCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&integrator, "integrator", "semi-implicit-euler", "integrator")
	cmd.Flags().Float64SliceVar(&q0, "q0", nil, "initial positions")
	cmd.Flags().Float64SliceVar(&v0, "v0", nil, "initial velocities")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration")
	cmd.Flags().StringVar(&modelFile, "model-file", "", "model description file (yaml)")
	cmd.Flags().Float64Var(&terrain, "terrain", 0, "terrain height")
	cmd.Flags().Float64Var(&friction, "friction", 0, "contact friction override")
}

// resolveConfig merges preset, config file and flags: the preset is the
// base, the file overrides it, and explicitly set flags override both.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if len(args) > 0 {
		cfg.Model = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if len(args) > 0 {
			loaded.Model = cfg.Model
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("q0") {
		cfg.Q0 = q0
	}
	if cmd.Flags().Changed("v0") {
		cfg.V0 = v0
	}
	if cmd.Flags().Changed("model-file") {
		cfg.ModelFile = modelFile
	}
	if cmd.Flags().Changed("terrain") {
		cfg.TerrainHeight = terrain
	}
	if cmd.Flags().Changed("friction") {
		cfg.Contact.Friction = friction
	}
	return cfg, cfg.Validate()
}

func buildModel(cfg *config.Config) (*model.Model, error) {
	if cfg.ModelFile != "" {
		desc, err := model.LoadDescription(cfg.ModelFile)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		return model.Build(desc)
	}
	return models.Get(cfg.Model)
}

func buildSession(cfg *config.Config) (*sim.Session, *model.Model, error) {
	m, err := buildModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	in, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, nil, err
	}

	s := sim.New(m, in)
	s.SetTerrain(contact.FlatTerrain{Level: cfg.TerrainHeight})
	s.SetContactParams(cfg.Contact)
	s.SetLimitParams(cfg.Limits)
	if err := s.Reset(cfg.Q0, cfg.V0); err != nil {
		return nil, nil, err
	}
	return s, m, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, m, err := buildSession(cfg)
	if err != nil {
		return err
	}

	s.AddMetric(metrics.NewEnergyDrift(m))
	s.AddMetric(metrics.NewQuaternionNorm(m))
	s.AddMetric(metrics.NewPeakVelocity())
	if len(m.ContactPoints()) > 0 {
		s.AddMetric(metrics.NewMaxPenetration(m, contact.FlatTerrain{Level: cfg.TerrainHeight}))
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, err := s.Run(ctx, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(m.Name(), cfg.Integrator, cfg.Dt, cfg.Duration, result)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d steps in %v (%.0f steps/s)\n",
		runID, result.StepsTaken, elapsed.Round(time.Millisecond),
		float64(result.StepsTaken)/elapsed.Seconds())
	for name, value := range result.Metrics {
		fmt.Printf("  %-24s %.6g\n", name, value)
	}
	for _, e := range result.Errors {
		fmt.Printf("  step error: %v\n", e)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs stored")
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	for _, r := range runs {
		fmt.Printf("%-40s %-20s %s dt=%g T=%g steps=%d\n",
			r.ID, r.Model, r.Timestamp.Format(time.RFC3339), r.Dt, r.Duration, r.StepsTaken)
	}
	return nil
}

// column extracts a named series ("q2", "v0") from stored states.
func column(states []sim.State, name string) ([]float64, error) {
	if len(name) < 2 {
		return nil, fmt.Errorf("bad column %q", name)
	}
	var idx int
	if _, err := fmt.Sscanf(name[1:], "%d", &idx); err != nil {
		return nil, fmt.Errorf("bad column %q", name)
	}
	data := make([]float64, len(states))
	for i, s := range states {
		switch {
		case name[0] == 'q' && idx < len(s.Q):
			data[i] = s.Q[idx]
		case name[0] == 'v' && idx < len(s.V):
			data[i] = s.V[idx]
		default:
			return nil, fmt.Errorf("column %q out of range", name)
		}
	}
	return data, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("run %s has no states", args[0])
	}

	col, _ := cmd.Flags().GetString("col")
	data, err := column(states, col)
	if err != nil {
		return err
	}

	// Downsample to terminal width.
	if len(data) > 400 {
		stride := len(data) / 400
		ds := make([]float64, 0, 400)
		for i := 0; i < len(data); i += stride {
			ds = append(ds, data[i])
		}
		data = ds
	}

	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s over time", col))))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	qi, _ := cmd.Flags().GetInt("q")
	vi, _ := cmd.Flags().GetInt("v")
	points := analysis.PhasePortrait(&sim.Result{States: states}, qi, vi)
	if points == nil {
		return fmt.Errorf("indices q=%d v=%d out of range", qi, vi)
	}
	fmt.Print(analysis.PlotASCII(points, 80, 24))
	fmt.Printf("q%d (horizontal) vs v%d (vertical)\n", qi, vi)
	return nil
}

func lyapunovRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	newInteg := func() integrators.Integrator {
		in, err := integrators.New(cfg.Integrator)
		if err != nil {
			return integrators.NewRK4()
		}
		return in
	}
	lam, err := analysis.LyapunovExponent(m, newInteg, cfg.Q0, cfg.V0, cfg.Dt, cfg.Duration, 1e-8)
	if err != nil {
		return err
	}
	fmt.Printf("largest Lyapunov exponent: %.4f /s\n", lam)
	if lam > 0.1 {
		fmt.Println("trajectory is chaotic")
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	res := &sim.Result{States: states, Times: make([]float64, len(states))}
	for i, s := range states {
		res.Times[i] = s.Time
	}
	return storage.WriteCSV(os.Stdout, res)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	res := &sim.Result{
		States:     states,
		Times:      make([]float64, len(states)),
		Metrics:    meta.Metrics,
		StepsTaken: meta.StepsTaken,
	}
	for i, s := range states {
		res.Times[i] = s.Time
	}
	return storage.ExportJSON(os.Stdout, meta.Model, meta.Integrator, meta.Dt, meta.Duration, res)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, m, err := buildSession(cfg)
	if err != nil {
		return err
	}

	renderer := tui.NewLiveRenderer(m, os.Stdout, 30)
	renderer.SetTerrainHeight(cfg.TerrainHeight)
	s.AddObserver(renderer)

	ctx, cancel := signalContext()
	defer cancel()

	renderer.Start()
	defer renderer.Done()

	// Pace the run to wall-clock time so the rendering is watchable.
	paced := sim.Config{Dt: cfg.Dt, Duration: cfg.Duration}
	ticker := time.NewTicker(time.Duration(float64(time.Second) * cfg.Dt))
	defer ticker.Stop()
	s.AddObserver(sim.ObserverFunc(func(sim.State) {
		select {
		case <-ticker.C:
		case <-ctx.Done():
		}
	}))

	_, err = s.Run(ctx, paced)
	if err == context.Canceled {
		return nil
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, _, err := buildSession(cfg)
	if err != nil {
		return err
	}

	w := tui.NewWatch(s, cfg.Dt, cfg.Q0, cfg.V0)
	w.SetTerrainHeight(cfg.TerrainHeight)
	return w.Run()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[:1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("%-22s %-14s %-14s\n", "integrator", "energy drift", "steps/s")
	for _, name := range args[1:] {
		in, err := integrators.New(name)
		if err != nil {
			return err
		}
		m, err := buildModel(cfg)
		if err != nil {
			return err
		}
		s := sim.New(m, in)
		s.SetTerrain(contact.FlatTerrain{Level: cfg.TerrainHeight})
		s.SetContactParams(cfg.Contact)
		if err := s.Reset(cfg.Q0, cfg.V0); err != nil {
			return err
		}

		start := time.Now()
		res, err := s.Run(ctx, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, StopOnError: true})
		if err != nil {
			fmt.Printf("%-22s failed: %v\n", name, err)
			continue
		}
		fmt.Printf("%-22s %-14.3e %-14.0f\n", name, res.EnergyDrift,
			float64(res.StepsTaken)/time.Since(start).Seconds())
	}
	return nil
}

func tuneController(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}
	target, _ := cmd.Flags().GetFloat64("target")

	objective := func(ctx context.Context, p map[string]float64) (float64, error) {
		in, err := integrators.New(cfg.Integrator)
		if err != nil {
			return 0, err
		}
		s := sim.New(m, in)
		pid := control.NewPID(p["kp"], 0, p["kd"], []float64{target})
		s.SetController(control.NewGravityCompensation(m, pid))
		if err := s.Reset(cfg.Q0, cfg.V0); err != nil {
			return 0, err
		}
		res, err := s.Run(ctx, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, StopOnError: true})
		if err != nil {
			return 0, err
		}
		final := res.States[len(res.States)-1]
		cost := 0.0
		if len(final.Q) > 0 {
			d := final.Q[0] - target
			cost += d * d
		}
		if len(final.V) > 0 {
			cost += final.V[0] * final.V[0]
		}
		return cost, nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	gs := optim.NewGridSearch(
		[]string{"kp", "kd"},
		[][]float64{{5, 20, 50, 100}, {1, 5, 15, 30}},
	)
	best, cost, err := gs.Search(ctx, objective)
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("no stable gains found")
	}

	var parts []string
	for _, k := range []string{"kp", "kd"} {
		parts = append(parts, fmt.Sprintf("%s=%g", k, best[k]))
	}
	fmt.Printf("best gains: %s (cost %.3e)\n", strings.Join(parts, " "), cost)
	return nil
}
