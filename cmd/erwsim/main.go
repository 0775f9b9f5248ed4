package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/soilstack/erwsim/internal/config"
	"github.com/soilstack/erwsim/internal/leach"
	"github.com/soilstack/erwsim/internal/storage"
)

var (
	dataDir string
	verbose bool

	configFile   string
	preset       string
	realizations int
	seed         uint64
	scenarioName string

	// leach curve preview
	leachKind      string
	leachRate      float64
	leachAsymptote float64
	leachFloor     float64
	leachPower     int
	leachPhase     float64
	leachSpan      float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "erwsim",
		Short: "stochastic sampling simulator for enhanced rock weathering trials",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".erwsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scenario and store the realization stack",
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")
	runCmd.Flags().IntVar(&realizations, "realizations", 0, "override realization count")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "override random seed")
	runCmd.Flags().StringVar(&scenarioName, "name", "", "override scenario name")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a scenario file to edit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initScenario,
	}
	initCmd.Flags().StringVar(&preset, "preset", "basalt", "preset to start from")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "show the sampling plan a scenario generates",
		RunE:  showPlan,
	}
	planCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	planCmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-sample mean measurements of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	leachCmd := &cobra.Command{
		Use:   "leach",
		Short: "preview a leaching curve",
		RunE:  plotLeach,
	}
	leachCmd.Flags().StringVar(&leachKind, "kind", "exponential", "model kind (none, exponential, seasonal)")
	leachCmd.Flags().Float64Var(&leachRate, "rate", 1.0, "rate constant (1/yr)")
	leachCmd.Flags().Float64Var(&leachAsymptote, "asymptote", 0.9, "asymptotic leached fraction")
	leachCmd.Flags().Float64Var(&leachFloor, "floor", 0.2, "seasonal rate floor")
	leachCmd.Flags().IntVar(&leachPower, "power", 1, "seasonal sharpness (1-3)")
	leachCmd.Flags().Float64Var(&leachPhase, "phase", 0, "seasonal phase offset (rad)")
	leachCmd.Flags().Float64Var(&leachSpan, "span", 3.0, "years to plot")

	rootCmd.AddCommand(runCmd, initCmd, presetsCmd, listCmd, exportCmd, planCmd, plotCmd, leachCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// loadScenario resolves precedence: preset, then config file, then flag
// overrides.
func loadScenario(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("realizations") {
		cfg.Realizations = realizations
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("name") {
		cfg.Name = scenarioName
	}
	return cfg, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sc, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}

	logger.Info("running scenario",
		"name", cfg.Name,
		"realizations", cfg.Realizations,
		"samples", sc.Plan.NSamples(),
		"analytes", len(cfg.Analytes),
	)
	start := time.Now()

	res, err := sc.Run(logger)
	if err != nil {
		return err
	}
	res.Comment = fmt.Sprintf("erwsim run of scenario %q", cfg.Name)

	runID, err := st.Save(cfg, res)
	if err != nil {
		return err
	}

	logger.Info("scenario complete",
		"run", runID,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"values", len(res.Data),
	)
	return nil
}

func initScenario(cmd *cobra.Command, args []string) error {
	path := "scenario.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s (preset %s)\n", path, preset)
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tREAL\tSAMPLES\tANALYTES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%v\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Realizations,
			run.Samples,
			run.Analytes,
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func showPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	sc, err := config.Build(cfg)
	if err != nil {
		return err
	}

	p := sc.Plan
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SAMPLE\tLOCATION\tROUND\tTIME\tCONTROL\tX\tY")
	for k := 0; k < p.NSamples(); k++ {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.2f\t%v\t%.1f\t%.1f\n",
			k+1, p.Location[k], p.Round[k], p.Time[k], p.Control[k],
			p.Points[k].X, p.Points[k].Y,
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
	res, err := st.LoadData(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Name)
	fmt.Printf("realizations: %d, samples: %d\n\n", res.Realizations, res.Samples)

	for band := 0; band < res.Bands(); band++ {
		caption := "sample mass (kg)"
		if band < len(res.Analytes) {
			caption = fmt.Sprintf("%s concentration, mean over realizations", res.Analytes[band])
		}
		data := make([]float64, res.Samples)
		for k := 0; k < res.Samples; k++ {
			var sum float64
			for i := 0; i < res.Realizations; i++ {
				sum += res.At(i, band, k)
			}
			data[k] = sum / float64(res.Realizations)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func plotLeach(cmd *cobra.Command, args []string) error {
	var (
		m   leach.Model
		err error
	)
	switch leachKind {
	case "none":
		m = leach.NoLeaching{}
	case "exponential":
		m, err = leach.NewExponential(leachRate, leachAsymptote, 0)
	case "seasonal":
		m, err = leach.NewSeasonal(leachRate, leachAsymptote, leachFloor, leachPower, leachPhase, 0)
	default:
		return fmt.Errorf("unknown leaching kind %q", leachKind)
	}
	if err != nil {
		return err
	}

	const n = 240
	data := make([]float64, n)
	for i := range data {
		t := leachSpan * float64(i) / float64(n-1)
		data[i] = m.Fraction(nil, t)
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s leached fraction over %.1f years", leachKind, leachSpan)),
	)
	fmt.Println(graph)
	return nil
}
