package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/TimFelixBeyer/NeuralODE/internal/adjoint"
	"github.com/TimFelixBeyer/NeuralODE/internal/analysis"
	"github.com/TimFelixBeyer/NeuralODE/internal/config"
	"github.com/TimFelixBeyer/NeuralODE/internal/dataset"
	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/eval"
	"github.com/TimFelixBeyer/NeuralODE/internal/experiment"
	"github.com/TimFelixBeyer/NeuralODE/internal/export"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
	"github.com/TimFelixBeyer/NeuralODE/internal/neural"
	"github.com/TimFelixBeyer/NeuralODE/internal/optim"
	"github.com/TimFelixBeyer/NeuralODE/internal/oscillator"
	"github.com/TimFelixBeyer/NeuralODE/internal/plot"
	"github.com/TimFelixBeyer/NeuralODE/internal/storage"
	"github.com/TimFelixBeyer/NeuralODE/internal/viz"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/n0madic/go-adamw"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

var (
	dataDir    string
	configFile string
	preset     string

	pos      float64
	vel      float64
	duration float64
	samples  int
	method   string
	rtol     float64
	atol     float64
	dt       float64
	seed     int64

	// dataset
	outDir      string
	series      int
	withScatter bool

	// train
	datasetDir string
	lr         float64
	epochs     int
	batchSize  int
	evalEvery  int
	endToEnd   bool
	segLen     int
	weightsOut string

	// eval
	epochTag int

	// plot / export
	showPhase bool
	svgOut    string
	exportOut string

	// gradcheck
	gradTol float64

	// sweep
	sweepMethods []string
	sweepTols    []float64
)

// main registers the CLI commands and executes the root command. It
// exits with status 1 if command execution returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:   "neuralode",
		Short: "neural ODE lab for learning oscillator dynamics",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".neuralode", "run data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "generate and store training trajectories",
		RunE:  buildDataset,
	}
	datasetCmd.Flags().StringVar(&outDir, "out", "data/msd", "dataset directory")
	datasetCmd.Flags().IntVar(&series, "series", config.DefaultSeries, "number of training series")
	datasetCmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "samples per series")
	datasetCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "sample spacing")
	datasetCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	datasetCmd.Flags().BoolVar(&withScatter, "scatter", false, "write a scatter png of the training states")

	simulateCmd := &cobra.Command{
		Use:   "simulate [field]",
		Short: "integrate a field and store the rollout",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&pos, "pos", 1.0, "initial position")
	simulateCmd.Flags().Float64Var(&vel, "vel", 0.0, "initial velocity")
	simulateCmd.Flags().Float64Var(&duration, "time", config.DefaultEvalDuration, "duration")
	simulateCmd.Flags().IntVar(&samples, "samples", config.DefaultEvalSamples, "output samples")
	simulateCmd.Flags().StringVar(&method, "method", config.DefaultSolver, "stepper")
	simulateCmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRtol, "relative tolerance")
	simulateCmd.Flags().Float64Var(&atol, "atol", config.DefaultAtol, "absolute tolerance")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&showPhase, "phase", false, "phase portrait instead of time series")
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the plot as svg")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "train the network on the stored dataset",
		RunE:  runTrain,
	}
	trainCmd.Flags().StringVar(&datasetDir, "dataset-dir", "data/msd", "dataset directory")
	trainCmd.Flags().Float64Var(&lr, "lr", config.DefaultLearningRate, "learning rate")
	trainCmd.Flags().IntVar(&epochs, "epochs", config.DefaultEpochs, "training epochs")
	trainCmd.Flags().IntVar(&batchSize, "batch", config.DefaultBatchSize, "minibatch size")
	trainCmd.Flags().IntVar(&evalEvery, "eval-every", 1, "evaluate every n epochs (0 disables)")
	trainCmd.Flags().BoolVar(&endToEnd, "end-to-end", false, "match rollouts through the adjoint instead of derivatives")
	trainCmd.Flags().IntVar(&segLen, "segment", 20, "rollout segment length in samples (end-to-end)")
	trainCmd.Flags().StringVar(&weightsOut, "weights", "weights.json", "weights output path")
	trainCmd.Flags().Int64Var(&seed, "seed", 0, "init and shuffle seed")

	evalCmd := &cobra.Command{
		Use:   "eval [field]",
		Short: "run the evaluation protocol against the reference",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEval,
	}
	evalCmd.Flags().StringVar(&datasetDir, "dataset-dir", "data/msd", "dataset directory")
	evalCmd.Flags().StringVar(&weightsOut, "weights", "weights.json", "weights path (mlp field)")
	evalCmd.Flags().IntVar(&epochTag, "epoch", 0, "epoch tag for the results row")

	gradcheckCmd := &cobra.Command{
		Use:   "gradcheck",
		Short: "verify adjoint gradients against finite differences",
		RunE:  runGradcheck,
	}
	gradcheckCmd.Flags().Float64Var(&gradTol, "tol", 1e-4, "max allowed |adjoint - fd|")

	sweepCmd := &cobra.Command{
		Use:   "sweep [field]",
		Short: "sweep steppers and tolerances, rank by energy drift",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringSliceVar(&sweepMethods, "methods", integrators.List(), "steppers to sweep")
	sweepCmd.Flags().Float64SliceVar(&sweepTols, "tols", []float64{1e-3, 1e-6, 1e-9}, "tolerances to sweep")
	sweepCmd.Flags().Float64Var(&pos, "pos", 1.0, "initial position")
	sweepCmd.Flags().Float64Var(&vel, "vel", 0.0, "initial velocity")
	sweepCmd.Flags().Float64Var(&duration, "time", config.DefaultEvalDuration, "duration")
	sweepCmd.Flags().IntVar(&samples, "samples", config.DefaultEvalSamples, "output samples")

	liveCmd := &cobra.Command{
		Use:   "live [field]",
		Short: "interactive phase portrait in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&pos, "pos", 1.0, "initial position")
	liveCmd.Flags().Float64Var(&vel, "vel", 0.0, "initial velocity")
	liveCmd.Flags().Float64Var(&dt, "dt", 0.01, "initial timestep")
	liveCmd.Flags().StringVar(&method, "method", config.DefaultSolver, "stepper")
	liveCmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRtol, "relative tolerance")
	liveCmd.Flags().Float64Var(&atol, "atol", config.DefaultAtol, "absolute tolerance")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSERIES\tSAMPLES\tEPOCHS\tLR\tHIDDEN")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%g\t%v\n",
					name, p.Dataset.Series, p.Dataset.Samples, p.Train.Epochs, p.Train.LearningRate, p.Net.Hidden)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(datasetCmd, simulateCmd, listCmd, plotCmd, exportCmd, analyzeCmd,
		trainCmd, evalCmd, gradcheckCmd, sweepCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the layered configuration: defaults, then a
// named preset, then an explicit config file. Flag overrides are
// applied per command afterwards.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p.Clone()
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

func applySolverFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("method") {
		cfg.Solver.Method = method
	}
	if f.Changed("rtol") {
		cfg.Solver.Rtol = rtol
	}
	if f.Changed("atol") {
		cfg.Solver.Atol = atol
	}
	if f.Changed("time") {
		cfg.Eval.Duration = duration
	}
	if f.Changed("samples") {
		cfg.Eval.Samples = samples
	}
}

func buildDataset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("out") {
		cfg.Dataset.Dir = outDir
	}
	if f.Changed("series") {
		cfg.Dataset.Series = series
	}
	if f.Changed("samples") {
		cfg.Dataset.Samples = samples
	}
	if f.Changed("dt") {
		cfg.Dataset.Dt = dt
	}
	if f.Changed("seed") {
		cfg.Dataset.Seed = seed
	}

	reg := experiment.NewRegistry()
	fld, err := reg.GetField(cfg.Model, cfg)
	if err != nil {
		return err
	}

	dcfg := dataset.Config{
		Series:  cfg.Dataset.Series,
		Samples: cfg.Dataset.Samples,
		Dt:      cfg.Dataset.Dt,
		Seed:    cfg.Dataset.Seed,
	}

	fmt.Printf("building %d series x %d samples (dt=%g) from %s...\n",
		dcfg.Series, dcfg.Samples, dcfg.Dt, cfg.Model)
	start := time.Now()
	set, err := dataset.Build(context.Background(), fld, dcfg)
	if err != nil {
		return err
	}
	if err := dataset.Save(cfg.Dataset.Dir, set); err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("dataset dir: %s\n", cfg.Dataset.Dir)
	fmt.Printf("train series: %d\n", len(set.TrainX))
	fmt.Printf("val rollouts: %d\n\n", len(set.ValX))

	xs, ys := scatterPoints(set, 4000)
	fmt.Println(viz.CanvasFrame.Render(viz.Scatter(xs, ys, 40, 14)))
	fmt.Println(viz.Dim.Render("train coverage: x vs x_dt"))

	if withScatter {
		p := filepath.Join(cfg.Dataset.Dir, "dataset.png")
		if err := plot.SaveDatasetScatter(p, set); err != nil {
			return err
		}
		fmt.Printf("scatter figure: %s\n", p)
	}
	return nil
}

// scatterPoints subsamples the training states down to at most limit
// points for the terminal preview.
func scatterPoints(set *dataset.Set, limit int) (xs, ys []float64) {
	total := 0
	for _, ser := range set.TrainX {
		total += len(ser)
	}
	stride := total/limit + 1
	i := 0
	for _, ser := range set.TrainX {
		for _, st := range ser {
			if i%stride == 0 && len(st) >= 2 {
				xs = append(xs, st[0])
				ys = append(ys, st[1])
			}
			i++
		}
	}
	return xs, ys
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySolverFlags(cmd, cfg)

	reg := experiment.NewRegistry()
	fld, err := reg.GetField(args[0], cfg)
	if err != nil {
		return err
	}

	st, err := integrators.New(cfg.Solver.Method)
	if err != nil {
		return err
	}
	opts := integrators.DefaultOptions()
	opts.Rtol = cfg.Solver.Rtol
	opts.Atol = cfg.Solver.Atol
	solver := integrators.NewSolver(st, opts)

	ts := floats.Span(make([]float64, cfg.Eval.Samples), 0, cfg.Eval.Duration)
	y0 := dynamics.State{pos, vel}

	fmt.Printf("running %s rollout...\n", args[0])
	start := time.Now()
	tr, err := solver.Integrate(context.Background(), fld, y0, ts)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	stats := solver.Stats()

	metrics := map[string]float64{
		"steps":    float64(stats.Steps),
		"rejected": float64(stats.Rejected),
	}
	if h, ok := fld.(dynamics.Hamiltonian); ok {
		e0 := h.Energy(tr.States[0])
		e1 := h.Energy(tr.Last())
		metrics["energy_initial"] = e0
		metrics["energy_final"] = e1
		if e0 != 0 {
			metrics["energy_drift"] = (e1 - e0) / e0
		}
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(args[0], cfg.Solver.Method, opts.Rtol, opts.Atol, tr, metrics)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d (%d steps, %d rejected)\n", tr.Len(), stats.Steps, stats.Rejected)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, metrics[name])
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
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFIELD\tTIME\tDURATION\tSAMPLES\tMETHOD")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%d\t%s\n",
			run.ID,
			run.Field,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Samples,
			run.Method,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if tr.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("field: %s\n", meta.Field)
	fmt.Printf("samples: %d\n\n", tr.Len())

	dim := len(tr.States[0])
	if showPhase {
		if dim < 2 {
			return fmt.Errorf("state dimension %d too small for a phase portrait", dim)
		}
		canvas := viz.PhaseCanvas(tr.Component(0), tr.Component(1), 40, 16)
		fmt.Println(viz.CanvasFrame.Render(canvas.String()))
		fmt.Println(viz.Dim.Render("x vs x_dt"))
		if svgOut != "" {
			if err := os.WriteFile(svgOut, []byte(export.CanvasSVG(canvas, 4)), 0644); err != nil {
				return err
			}
			fmt.Printf("svg: %s\n", svgOut)
		}
		return nil
	}

	for j := 0; j < dim && j < 6; j++ {
		caption := fmt.Sprintf("x%d vs time", j)
		if dim == 2 {
			if j == 0 {
				caption = "x (position)"
			} else {
				caption = "x_dt (velocity)"
			}
		}
		fmt.Println(viz.Chart(tr.Component(j), caption, 80, 10))
		fmt.Println()
	}
	if svgOut != "" {
		svg := export.TrajectorySVG(tr.Times, tr.Component(0), 800, 400, "#00ccff")
		if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("svg: %s\n", svgOut)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if exportOut != "" {
		fh, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer fh.Close()
		if err := st.ExportJSON(fh, args[0]); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", exportOut)
		return nil
	}
	return st.ExportJSON(os.Stdout, args[0])
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if tr.Len() < 4 {
		return fmt.Errorf("not enough samples to analyze")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("field: %s\n\n", meta.Field)

	data := tr.Component(0)
	ps := analysis.PowerSpectrum(data)
	fmt.Println(viz.Chart(ps[:len(ps)/4], "power spectrum (x)", 80, 15))
	fmt.Println()

	sampleDt := tr.Times[1] - tr.Times[0]
	freq := analysis.DominantFrequency(data, sampleDt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1/freq)
	}
	fmt.Printf("zero crossings: %d\n", len(analysis.ZeroCrossings(data)))

	if meta.Field == "msd" {
		msd := oscillator.NewMassSpringDamper()
		msd.Mass = cfg.Oscillator.Mass
		msd.Damping = cfg.Oscillator.Damping
		msd.Stiffness = cfg.Oscillator.Stiffness
		fmt.Printf("analytic frequency: %.3f hz\n", msd.Frequency())
	}

	// The exponent needs the field itself, not just the samples.
	if fld, err := experiment.NewRegistry().GetField(meta.Field, cfg); err == nil {
		rk4 := integrators.NewRK4()
		lam := analysis.LargestLyapunov(fld, rk4, tr.States[0].Clone(), sampleDt, meta.Duration, 1e-8)
		if !math.IsNaN(lam) {
			fmt.Printf("largest lyapunov exponent: %+.4f\n", lam)
		}
	}
	return nil
}

// optimizer abstracts the in-place update step so the two training
// modes share one loop body.
type optimizer interface {
	Step(params, grad []float64) error
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("dataset-dir") {
		cfg.Dataset.Dir = datasetDir
	}
	if f.Changed("lr") {
		cfg.Train.LearningRate = lr
	}
	if f.Changed("epochs") {
		cfg.Train.Epochs = epochs
	}
	if f.Changed("batch") {
		cfg.Train.BatchSize = batchSize
	}
	if f.Changed("eval-every") {
		cfg.Train.EvalEvery = evalEvery
	}
	if f.Changed("end-to-end") {
		cfg.Train.EndToEnd = endToEnd
	}
	if f.Changed("weights") {
		cfg.Net.Weights = weightsOut
	}
	if f.Changed("seed") {
		cfg.Net.Seed = seed
	}

	set, err := dataset.Load(cfg.Dataset.Dir)
	if err != nil {
		return fmt.Errorf("load dataset %s (generate it with the dataset command): %w", cfg.Dataset.Dir, err)
	}

	sizes := append([]int{2}, cfg.Net.Hidden...)
	sizes = append(sizes, 2)
	model, err := neural.NewMLP(sizes, cfg.Net.Seed)
	if err != nil {
		return err
	}

	opt, err := adamw.New(model.Params(), adamw.Options{
		Alpha:    cfg.Train.LearningRate,
		Beta1:    0.9,
		Beta2:    0.999,
		Eps:      1e-8,
		Schedule: adamw.NewFixedSchedule(1.0, 0),
	})
	if err != nil {
		return err
	}

	harness, err := experiment.New(cfg, model, set, time.Now())
	if err != nil {
		return err
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(cfg.Net.Seed))
	lossAvg := eval.NewRunningAverage(eval.DefaultMomentum)
	trainX, trainY := set.Flatten()

	mode := "derivative matching"
	if cfg.Train.EndToEnd {
		mode = "end-to-end rollouts"
	}
	fmt.Printf("training %v on %d series (%s, lr=%g, batch=%d)\n",
		sizes, len(set.TrainX), mode, cfg.Train.LearningRate, cfg.Train.BatchSize)

	start := time.Now()
	for epoch := 0; epoch < cfg.Train.Epochs; epoch++ {
		var loss float64
		if cfg.Train.EndToEnd {
			loss, err = trainRollouts(ctx, model, opt, set, cfg, segLen, rng)
		} else {
			loss, err = trainDerivatives(model, opt, trainX, trainY, cfg.Train.BatchSize, rng)
		}
		if err != nil {
			return err
		}
		lossAvg.Observe(loss)
		fmt.Printf("epoch %3d  loss %.6g  avg %.6g\n", epoch, loss, lossAvg.Value())

		if cfg.Train.EvalEvery > 0 && (epoch+1)%cfg.Train.EvalEvery == 0 {
			report, err := harness.Run(ctx, epoch)
			if err != nil {
				fmt.Printf("          eval failed: %v\n", err)
				continue
			}
			fmt.Printf("          drift %.3g/%.3g  phase %.3g/%.3g  traj %.3g/%.3g\n",
				report.EnergyDriftInterp, report.EnergyDriftExtrap,
				report.PhaseErrorInterp, report.PhaseErrorExtrap,
				report.TrajErrInterp, report.TrajErrExtrap)
		}
	}
	fmt.Printf("trained in %v\n", time.Since(start))

	if err := model.Save(cfg.Net.Weights); err != nil {
		return err
	}
	fmt.Printf("weights: %s\n", cfg.Net.Weights)
	fmt.Printf("results: %s\n", harness.ResultsPath())
	return nil
}

// trainDerivatives runs one epoch of minibatch MSE on stored (state,
// derivative) pairs. Returns the mean batch loss.
func trainDerivatives(model *neural.MLP, opt optimizer, xs, ys []dynamics.State, batchSize int, rng *rand.Rand) (float64, error) {
	if len(xs) == 0 {
		return 0, fmt.Errorf("empty training set")
	}
	if batchSize < 1 {
		batchSize = len(xs)
	}

	perm := rng.Perm(len(xs))
	total := 0.0
	batches := 0
	for off := 0; off < len(perm); off += batchSize {
		end := min(off+batchSize, len(perm))
		idx := perm[off:end]

		batchX := make([]dynamics.State, len(idx))
		for k, i := range idx {
			batchX[k] = xs[i]
		}
		preds := model.EvalBatch(0, batchX)

		norm := float64(len(idx) * model.Dim())
		upstream := make([]dynamics.State, len(idx))
		loss := 0.0
		for k, i := range idx {
			row := make(dynamics.State, len(preds[k]))
			for j := range row {
				d := preds[k][j] - ys[i][j]
				row[j] = 2 * d / norm
				loss += d * d
			}
			upstream[k] = row
		}

		grad, _ := model.Gradient(batchX, upstream)
		if err := opt.Step(model.Params(), grad); err != nil {
			return 0, err
		}
		total += loss / norm
		batches++
	}
	return total / float64(batches), nil
}

// trainRollouts runs one epoch of segment matching: short windows of
// the stored trajectories are re-integrated from their first sample
// and the squared trajectory error flows back through the adjoint.
func trainRollouts(ctx context.Context, model *neural.MLP, opt optimizer, set *dataset.Set, cfg *config.Config, segLen int, rng *rand.Rand) (float64, error) {
	if segLen < 2 {
		return 0, fmt.Errorf("segment must span at least 2 samples, got %d", segLen)
	}
	seriesLen := len(set.TrainX[0])
	if seriesLen < segLen {
		return 0, fmt.Errorf("series of %d samples cannot fit a %d sample segment", seriesLen, segLen)
	}

	batch := cfg.Train.BatchSize
	if batch < 1 {
		batch = 1
	}
	iters := len(set.TrainX) * seriesLen / (batch * segLen)
	if iters < 1 {
		iters = 1
	}

	ts := make([]float64, segLen)
	floats.Span(ts, 0, float64(segLen-1)*set.Dt)

	opts := integrators.DefaultOptions()
	opts.Rtol = cfg.Solver.Rtol
	opts.Atol = cfg.Solver.Atol
	adjCfg := adjoint.Config{Method: cfg.Solver.Method, Opts: opts}

	dim := model.Dim()
	total := 0.0
	for it := 0; it < iters; it++ {
		flat := make([]float64, model.NumParams())
		norm := float64(batch * segLen * dim)
		loss := 0.0
		for b := 0; b < batch; b++ {
			s := rng.Intn(len(set.TrainX))
			k := rng.Intn(seriesLen - segLen + 1)

			sol, err := adjoint.Solve(ctx, model, set.TrainX[s][k].Clone(), ts, adjCfg)
			if err != nil {
				return 0, fmt.Errorf("segment rollout: %w", err)
			}

			grad := make([]dynamics.State, segLen)
			for j := 0; j < segLen; j++ {
				target := set.TrainX[s][k+j]
				pred := sol.Trajectory.States[j]
				row := make(dynamics.State, dim)
				for c := 0; c < dim; c++ {
					d := pred[c] - target[c]
					row[c] = 2 * d / norm
					loss += d * d
				}
				grad[j] = row
			}

			grads, err := sol.Backward(ctx, grad)
			if err != nil {
				return 0, err
			}
			off := 0
			for _, block := range grads.Params {
				for i, v := range block {
					flat[off+i] += v
				}
				off += len(block)
			}
		}
		if err := opt.Step(model.Params(), flat); err != nil {
			return 0, err
		}
		total += loss / norm
	}
	return total / float64(iters), nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("dataset-dir") {
		cfg.Dataset.Dir = datasetDir
	}
	if f.Changed("weights") {
		cfg.Net.Weights = weightsOut
	}

	name := "mlp"
	if len(args) == 1 {
		name = args[0]
	}

	set, err := dataset.Load(cfg.Dataset.Dir)
	if err != nil {
		return fmt.Errorf("load dataset %s (generate it with the dataset command): %w", cfg.Dataset.Dir, err)
	}

	reg := experiment.NewRegistry()
	fld, err := reg.GetField(name, cfg)
	if err != nil {
		return err
	}

	harness, err := experiment.New(cfg, fld, set, time.Now())
	if err != nil {
		return err
	}
	report, err := harness.Run(context.Background(), epochTag)
	if err != nil {
		return err
	}

	fmt.Println(viz.Header.Render("evaluation: " + name))
	fmt.Println()
	metric := func(label string, v float64) {
		fmt.Printf("%s %s\n",
			viz.MetricLabel.Render(fmt.Sprintf("%-24s", label)),
			viz.MetricValue.Render(fmt.Sprintf("%.6g", v)))
	}
	metric("energy drift (interp)", report.EnergyDriftInterp)
	metric("phase error (interp)", report.PhaseErrorInterp)
	metric("traj error (interp)", report.TrajErrInterp)
	fmt.Println(viz.Separator(46))
	metric("energy drift (extrap)", report.EnergyDriftExtrap)
	metric("phase error (extrap)", report.PhaseErrorExtrap)
	metric("traj error (extrap)", report.TrajErrExtrap)
	fmt.Println()
	fmt.Printf("wall time: %.2fs\n", report.WallTime)
	fmt.Println(viz.Footnote.Render("figure: " + report.PlotPath))
	fmt.Println(viz.Footnote.Render("results: " + report.ResultsPath))
	return nil
}

func runGradcheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	opts := integrators.DefaultOptions()
	opts.Rtol = 1e-12
	opts.Atol = 1e-12
	adjCfg := adjoint.Config{Method: "dopri5", Opts: opts}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUANTITY\tADJOINT\tFD\tDIFF")

	maxDiff := 0.0
	report := func(name string, adj, fd float64) {
		d := math.Abs(adj - fd)
		if d > maxDiff {
			maxDiff = d
		}
		fmt.Fprintf(w, "%s\t%+.8f\t%+.8f\t%.3g\n", name, adj, fd, d)
	}

	// Analytic field first. The loss is the sum of the final state
	// components.
	msd := oscillator.NewMassSpringDamper()
	msd.Mass = cfg.Oscillator.Mass
	msd.Damping = cfg.Oscillator.Damping
	msd.Stiffness = cfg.Oscillator.Stiffness

	y0 := dynamics.State{1.2, -0.4}
	ts := floats.Span(make([]float64, 21), 0, 2.0)

	sol, err := adjoint.Solve(ctx, msd, y0.Clone(), ts, adjCfg)
	if err != nil {
		return err
	}
	rows := make([]dynamics.State, len(ts))
	rows[len(rows)-1] = dynamics.State{1, 1}
	grads, err := sol.Backward(ctx, rows)
	if err != nil {
		return err
	}

	names := []string{"msd dL/dx0", "msd dL/dv0"}
	for i := range y0 {
		fd, err := fdInitial(ctx, msd, y0, ts, i, 1e-5, adjCfg)
		if err != nil {
			return err
		}
		report(names[i], grads.Y0[i], fd)
	}

	fdT, err := fdFinalTime(ctx, msd, y0, ts, 1e-5, adjCfg)
	if err != nil {
		return err
	}
	report("msd dL/dT", grads.Times[len(grads.Times)-1], fdT)

	// Network parameters on a short horizon.
	model, err := neural.NewMLP([]int{2, 8, 2}, 7)
	if err != nil {
		return err
	}
	tsNet := floats.Span(make([]float64, 6), 0, 0.5)

	solNet, err := adjoint.Solve(ctx, model, y0.Clone(), tsNet, adjCfg)
	if err != nil {
		return err
	}
	rowsNet := make([]dynamics.State, len(tsNet))
	rowsNet[len(rowsNet)-1] = dynamics.State{1, 1}
	gradsNet, err := solNet.Backward(ctx, rowsNet)
	if err != nil {
		return err
	}
	adjFlat := make([]float64, 0, model.NumParams())
	for _, block := range gradsNet.Params {
		adjFlat = append(adjFlat, block...)
	}

	params := model.Params()
	eps := 1e-6
	worst := 0
	worstDiff := -1.0
	adjWorst, fdWorst := 0.0, 0.0
	for i := range params {
		orig := params[i]
		params[i] = orig + eps
		lp, err := finalSum(ctx, model, y0, tsNet, adjCfg)
		if err != nil {
			params[i] = orig
			return err
		}
		params[i] = orig - eps
		lm, err := finalSum(ctx, model, y0, tsNet, adjCfg)
		params[i] = orig
		if err != nil {
			return err
		}
		fd := (lp - lm) / (2 * eps)
		if d := math.Abs(adjFlat[i] - fd); d > worstDiff {
			worstDiff = d
			worst = i
			adjWorst = adjFlat[i]
			fdWorst = fd
		}
	}
	report(fmt.Sprintf("mlp dL/dtheta[%d]", worst), adjWorst, fdWorst)

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nchecked %d network parameters, worst |diff| %.3g\n", model.NumParams(), worstDiff)

	if maxDiff > gradTol {
		return fmt.Errorf("gradient check failed: max diff %.3g exceeds %.0e", maxDiff, gradTol)
	}
	fmt.Printf("PASS (tolerance %.0e)\n", gradTol)
	return nil
}

// finalSum integrates f across ts and returns the sum of the final
// state components, the scalar loss used by the gradient check.
func finalSum(ctx context.Context, f dynamics.Field, y0 dynamics.State, ts []float64, cfg adjoint.Config) (float64, error) {
	st, err := integrators.New(cfg.Method)
	if err != nil {
		return 0, err
	}
	solver := integrators.NewSolver(st, cfg.Opts)
	tr, err := solver.Integrate(ctx, f, y0.Clone(), ts)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, v := range tr.Last() {
		sum += v
	}
	return sum, nil
}

func fdInitial(ctx context.Context, f dynamics.Field, y0 dynamics.State, ts []float64, i int, eps float64, cfg adjoint.Config) (float64, error) {
	up := y0.Clone()
	up[i] += eps
	lp, err := finalSum(ctx, f, up, ts, cfg)
	if err != nil {
		return 0, err
	}
	down := y0.Clone()
	down[i] -= eps
	lm, err := finalSum(ctx, f, down, ts, cfg)
	if err != nil {
		return 0, err
	}
	return (lp - lm) / (2 * eps), nil
}

func fdFinalTime(ctx context.Context, f dynamics.Field, y0 dynamics.State, ts []float64, eps float64, cfg adjoint.Config) (float64, error) {
	shift := func(delta float64) []float64 {
		out := append([]float64(nil), ts...)
		out[len(out)-1] += delta
		return out
	}
	lp, err := finalSum(ctx, f, y0, shift(eps), cfg)
	if err != nil {
		return 0, err
	}
	lm, err := finalSum(ctx, f, y0, shift(-eps), cfg)
	if err != nil {
		return 0, err
	}
	return (lp - lm) / (2 * eps), nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySolverFlags(cmd, cfg)

	name := cfg.Model
	if len(args) == 1 {
		name = args[0]
	}
	reg := experiment.NewRegistry()
	fld, err := reg.GetField(name, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s across %d steppers and %d tolerances...\n",
		name, len(sweepMethods), len(sweepTols))

	sw := &optim.Sweep{Methods: sweepMethods, Tolerances: sweepTols}
	results := sw.Run(context.Background(), fld, dynamics.State{pos, vel}, cfg.Eval.Duration, cfg.Eval.Samples)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tTOL\tDRIFT\tSTEPS\tREJECTED\tTIME")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t%.0e\terror: %v\t\t\t\n", r.Method, r.Rtol, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.0e\t%+.3e\t%d\t%d\t%v\n",
			r.Method, r.Rtol, r.Drift, r.Steps, r.Rejected, r.Elapsed.Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := optim.Best(results); ok {
		fmt.Printf("\nbest: %s at %.0e (drift %+.3e in %v)\n",
			best.Method, best.Rtol, best.Drift, best.Elapsed.Round(time.Microsecond))
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySolverFlags(cmd, cfg)

	reg := experiment.NewRegistry()
	fld, err := reg.GetField(args[0], cfg)
	if err != nil {
		return err
	}
	st, err := integrators.New(cfg.Solver.Method)
	if err != nil {
		return err
	}

	m := viz.NewModel(args[0], fld, st, dynamics.State{pos, vel}, dt, cfg.Solver.Rtol, cfg.Solver.Atol)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
