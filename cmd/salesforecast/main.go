package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	salesforecast "github.com/aouyang1/go-salesforecast"
	"github.com/aouyang1/go-salesforecast/config"
	"github.com/aouyang1/go-salesforecast/pipeline"
	"github.com/aouyang1/go-salesforecast/server"
	"github.com/gin-gonic/gin"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	envFile   string
	dataPath  string
	modelPath string
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "salesforecast",
		Short: "Train and serve the stacked sales forecasting pipeline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional .env file, defaults to .env in the working directory")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "Artifact path, overrides MODEL_PATH")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	if dataPath != "" {
		cfg.DataPath = dataPath
	}
	return cfg, nil
}

// trainCmd fits the pipeline on the sales table and writes the artifact
func trainCmd() *cobra.Command {
	var (
		plotPath        string
		cpuProfile      bool
		holidays        bool
		testFraction    float64
		parallelization int
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the sales pipeline and save the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cpuProfile {
				defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
			}

			opt := salesforecast.NewDefaultOptions()
			opt.FeatureOptions.Holidays = holidays || cfg.Holidays
			opt.TestFraction = testFraction
			opt.PipelineOptions.Parallelization = parallelization

			tr, err := salesforecast.Train(cfg.DataPath, cfg.ModelPath, opt)
			if err != nil {
				return fmt.Errorf("failed to train: %w", err)
			}
			if err := tr.TablePrint(os.Stdout, "", "  "); err != nil {
				return err
			}
			if plotPath != "" {
				if err := tr.PlotFit(plotPath); err != nil {
					return fmt.Errorf("failed to plot fit: %w", err)
				}
				slog.Info("wrote fit plot", "path", plotPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Training table (.csv or .xlsx), overrides DATA_PATH")
	cmd.Flags().StringVar(&plotPath, "plot", "", "Write an html plot of the test split to this path")
	cmd.Flags().BoolVar(&cpuProfile, "profile", false, "Write a cpu profile to the working directory")
	cmd.Flags().BoolVar(&holidays, "holidays", false, "Add the US federal holiday feature")
	cmd.Flags().Float64Var(&testFraction, "test-fraction", salesforecast.DefaultTestFraction, "Share of the most recent rows held out for evaluation")
	cmd.Flags().IntVar(&parallelization, "parallelization", 0, "Concurrent estimator fits, 0 uses every cpu")
	return cmd
}

// serveCmd loads the artifact once and serves predictions
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions from a trained artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.GinMode != "" {
				gin.SetMode(cfg.GinMode)
			}

			artifact, err := pipeline.Load(cfg.ModelPath)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}
			slog.Info("loaded sales pipeline",
				"path", cfg.ModelPath,
				"version", artifact.Version,
				"created_at", artifact.CreatedAt,
				"features", len(artifact.Features),
			)
			if missing := artifact.Unresolved(server.FieldNames()); len(missing) > 0 {
				slog.Warn("features not carried by the predict request default to 0", "features", missing)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg.Addr(), server.New(artifact).Router())
		},
	}
}
