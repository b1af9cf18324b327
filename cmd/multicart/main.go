package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/driver"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/integrators"
	"github.com/san-kum/multicart/internal/metrics"
	"github.com/san-kum/multicart/internal/physics"
	"github.com/san-kum/multicart/internal/policy"
	"github.com/san-kum/multicart/internal/render"
	"github.com/san-kum/multicart/internal/storage"
	"github.com/san-kum/multicart/internal/tui"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	carts      int
	episodes   int
	maxSteps   int
	policyName string
	integrator string
	seed       int64
	renderMode string
	fps        int
	trajectory bool
	quiet      bool
	noSave     bool
	recordPath string
	svgPath    string
	runs       int
	parallel   int

	replayEpisode int
	replayFPS     int
	replayGIF     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "multicart",
		Short:         "independent cart-pole systems behind one environment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnvironment(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".multicart", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log episode progress")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "play episodes and store the results",
		Args:  cobra.NoArgs,
		RunE:  runEpisodes,
	}
	addEnvFlags(runCmd)
	runCmd.Flags().StringVar(&renderMode, "render", "", "render mode (human, rgb_array)")
	runCmd.Flags().BoolVar(&trajectory, "trajectory", false, "store every step")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print observations")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&recordPath, "record", "", "write rendered frames to a GIF")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the final frame as SVG")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch a policy balance the carts",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addEnvFlags(liveCmd)
	liveCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "frames per second")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "run independent seeds in parallel",
		Args:  cobra.NoArgs,
		RunE:  benchRuns,
	}
	addEnvFlags(benchCmd)
	benchCmd.Flags().IntVar(&runs, "runs", 8, "number of seeds")
	benchCmd.Flags().IntVar(&parallel, "parallel", 4, "seeds run at once")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot episode returns of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(cmd.OutOrStdout(), args[0])
		},
	}

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "redraw a recorded episode from its trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}
	replayCmd.Flags().IntVar(&replayEpisode, "episode", 0, "episode to replay")
	replayCmd.Flags().IntVar(&replayFPS, "fps", 0, "frames per second (0 uses the stored config)")
	replayCmd.Flags().StringVar(&replayGIF, "record", "", "write the replay to a GIF instead of the terminal")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCARTS\tPOLICY\tINTEG\tTAU\tSTEPS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.3f\t%d\n",
					name, cfg.Env.Carts, cfg.Run.Policy, cfg.Physics.Integrator, cfg.Physics.Tau, cfg.Run.MaxSteps)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, listCmd, plotCmd, replayCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addEnvFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&carts, "carts", config.DefaultCarts, "number of carts")
	cmd.Flags().IntVar(&episodes, "episodes", config.DefaultEpisodes, "episodes to play")
	cmd.Flags().IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "step limit per episode")
	cmd.Flags().StringVar(&policyName, "policy", "random", "policy ("+strings.Join(policy.Names(), ", ")+")")
	cmd.Flags().StringVar(&integrator, "integrator", "euler", "integrator ("+strings.Join(integrators.Names(), ", ")+")")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
}

// loadEnvironment reads a .env file if present and applies MULTICART_*
// variables to flags the user did not set.
func loadEnvironment(cmd *cobra.Command) {
	_ = godotenv.Load()

	if v := os.Getenv("MULTICART_DATA"); v != "" && !cmd.Flags().Changed("data") {
		dataDir = v
	}
	if v := os.Getenv("MULTICART_CONFIG"); v != "" && configFile == "" {
		configFile = v
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveConfig layers preset, config file and explicit flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("carts") {
		cfg.Env.Carts = carts
	}
	if flags.Changed("episodes") {
		cfg.Run.Episodes = episodes
	}
	if flags.Changed("max-steps") {
		cfg.Run.MaxSteps = maxSteps
	}
	if flags.Changed("policy") {
		cfg.Run.Policy = policyName
	}
	if flags.Changed("integrator") {
		cfg.Physics.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Lookup("render") != nil && flags.Changed("render") {
		cfg.Run.Render = renderMode
	}
	if flags.Lookup("trajectory") != nil && flags.Changed("trajectory") {
		cfg.Run.RecordTrajectory = trajectory
	}
	if flags.Lookup("fps") != nil && flags.Changed("fps") {
		cfg.Run.FPS = fps
	}

	if cfg.Run.Seed == 0 {
		cfg.Run.Seed = time.Now().UnixNano()
	}
	if cfg.Run.Policy == "" {
		cfg.Run.Policy = "random"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildRunner(cfg *config.Config, seed int64, logger *slog.Logger, opts ...driver.Option) (*driver.Runner, *env.MultiCart, error) {
	e, err := env.New(cfg, seed, env.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	p, err := policy.New(cfg.Run.Policy, e.ActionSpace(), cfg.Physics.Tau, seed)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	opts = append([]driver.Option{
		driver.WithMetrics(metrics.Default(cfg)...),
		driver.WithLogger(logger),
	}, opts...)
	return driver.New(e, p, opts...), e, nil
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if recordPath != "" && cfg.Run.Render == "" {
		cfg.Run.Render = string(env.ModeRGBArray)
	}

	logger := newLogger()
	out := cmd.OutOrStdout()

	var opts []driver.Option
	if !quiet {
		opts = append(opts, driver.WithObserver(driver.NewPrinter(out, cfg.Run.MaxSteps)))
	}
	var rec *render.Recorder
	if recordPath != "" {
		rec = render.NewRecorder(100 / cfg.Run.FPS)
		opts = append(opts, driver.WithRecorder(rec))
	}

	runner, e, err := buildRunner(cfg, cfg.Run.Seed, logger, opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := runner.Run(ctx, driver.Config{
		Episodes:         cfg.Run.Episodes,
		MaxSteps:         cfg.Run.MaxSteps,
		Render:           env.Mode(cfg.Run.Render),
		RecordTrajectory: cfg.Run.RecordTrajectory,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(out, "\n%d episodes in %v  mean steps %.1f  mean return %.1f  survival %.3f\n",
		len(result.Episodes), elapsed.Round(time.Millisecond),
		result.Metrics["steps"], result.Metrics["return"], result.Metrics["survival"])

	if rec != nil {
		if err := rec.Save(recordPath); err != nil {
			return fmt.Errorf("write gif: %w", err)
		}
		fmt.Fprintf(out, "recorded %d frames to %s\n", rec.Len(), recordPath)
	}

	if svgPath != "" {
		img, err := e.Render(env.ModeRGBArray)
		if err != nil {
			return err
		}
		if err := os.WriteFile(svgPath, []byte(render.ImageSVG(img, 4)), 0644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.NewMetadata(cfg), result)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved run %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	e, err := env.New(cfg, cfg.Run.Seed, env.WithLogger(logger))
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := policy.New(cfg.Run.Policy, e.ActionSpace(), cfg.Physics.Tau, cfg.Run.Seed)
	if err != nil {
		return err
	}

	m := tui.NewModel(e, p, cfg.Run.FPS, cfg.Run.MaxSteps)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return err
	}
	return nil
}

func benchRuns(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()

	build := func(seed int64) (*driver.Runner, error) {
		r, _, err := buildRunner(cfg, seed, logger)
		return r, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results, err := driver.RunEnsemble(ctx, runs, cfg.Run.Seed, parallel, build, driver.Config{
		Episodes: cfg.Run.Episodes,
		MaxSteps: cfg.Run.MaxSteps,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "benchmarking %d carts, policy %s, %d seeds\n\n", cfg.Env.Carts, cfg.Run.Policy, runs)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tRETURN\tSTABILITY\tSURVIVAL\tPUSH_RIGHT")

	totalSteps := 0.0
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%.3f\t%.3f\t%.3f\n",
			r.Seed, r.Metrics["steps"], r.Metrics["return"],
			r.Metrics["stability"], r.Metrics["survival"], r.Metrics["push_balance"])
		totalSteps += r.Metrics["steps"] * float64(len(r.Episodes))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%v total, %.0f env steps/sec\n", elapsed.Round(time.Millisecond), totalSteps/elapsed.Seconds())

	x0 := dynamo.State{0, 0, cfg.Physics.ResetNoise, 0}
	push := dynamo.Control{cfg.Physics.ForceMag}
	stepErr := integrators.MaxStepError(physics.FromConfig(cfg.Physics), x0, push, cfg.Physics.Tau, cfg.Run.MaxSteps)
	fmt.Fprintf(out, "rk45 local error estimate at tau %.3f: %.2e\n", cfg.Physics.Tau, stepErr)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "no runs found in %s\n", st.BaseDir())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tCARTS\tPOLICY\tINTEG\tEPISODES\tRETURN")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%.1f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Carts,
			run.Policy,
			run.Integrator,
			run.Episodes,
			run.Metrics["return"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	episodes, err := st.LoadEpisodes(runID)
	if err != nil {
		return err
	}

	if len(episodes) < 2 {
		return fmt.Errorf("need at least 2 episodes to plot, run has %d", len(episodes))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "carts: %d  policy: %s\n", meta.Carts, meta.Policy)
	fmt.Fprintf(out, "episodes: %d\n\n", len(episodes))

	series := []struct {
		caption string
		value   func(storage.EpisodeRecord) float64
	}{
		{"episode return", func(ep storage.EpisodeRecord) float64 { return ep.Return }},
		{"stability", func(ep storage.EpisodeRecord) float64 { return ep.Metrics["stability"] }},
		{"survival", func(ep storage.EpisodeRecord) float64 { return ep.Metrics["survival"] }},
	}

	for _, s := range series {
		data := make([]float64, len(episodes))
		for i, ep := range episodes {
			data[i] = s.value(ep)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}

	return nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	points, err := st.LoadTrajectory(runID, replayEpisode)
	if err != nil {
		return err
	}

	cfg := meta.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Env.Carts = meta.Carts
	}

	out := cmd.OutOrStdout()
	e, err := env.New(cfg, meta.Seed, env.WithOutput(out))
	if err != nil {
		return err
	}
	defer e.Close()

	rate := cfg.Run.FPS
	if replayFPS > 0 {
		rate = replayFPS
	}

	mode := env.ModeHuman
	var rec *render.Recorder
	if replayGIF != "" {
		mode = env.ModeRGBArray
		rec = render.NewRecorder(100 / rate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for _, p := range points {
		if err := e.Restore(p.Obs); err != nil {
			return fmt.Errorf("step %d: %w", p.Step, err)
		}
		img, err := e.Render(mode)
		if err != nil {
			return err
		}
		if rec != nil {
			if img != nil {
				rec.Capture(img)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if rec != nil {
		if err := rec.Save(replayGIF); err != nil {
			return fmt.Errorf("write gif: %w", err)
		}
		fmt.Fprintf(out, "recorded %d frames to %s\n", rec.Len(), replayGIF)
	}
	fmt.Fprintf(out, "replayed %d steps of %s episode %d\n", len(points), runID, replayEpisode)
	return nil
}
