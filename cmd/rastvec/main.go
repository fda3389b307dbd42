package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/wgdzlh/rastvec"
	"github.com/wgdzlh/rastvec/log"
	"github.com/wgdzlh/rastvec/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string
	cfg      *rastvec.Config

	inputDir  string
	outputDir string
	labels    []string
	workers   int
	mergeOut  string
)

var rootCmd = &cobra.Command{
	Use:           "rastvec",
	Short:         "Raster time-series to point/polygon vectors and pixel tables",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg, err = rastvec.LoadConfig(cfgFile); err != nil {
			return
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return log.Init(cfg.Log.Level, cfg.Log.Format)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Vectorize every raster in the input dir",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if cmd.Flags().Changed("input-dir") {
			cfg.InputDir = inputDir
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.OutputDir = outputDir
			cfg.VectorDir, cfg.CsvDir = "", ""
		}
		if cmd.Flags().Changed("labels") {
			cfg.BandLabels = labels
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		cfg.ApplyDefaults()
		report, err := rastvec.NewGdalToolbox(cfg).Run(cmd.Context())
		if err != nil {
			return
		}
		for _, r := range report.Results {
			if r.Ok() {
				fmt.Fprintf(cmd.OutOrStdout(), "ok\t%s\t%d pixels\t%s\n", r.Name, r.Pixels, r.Elapsed)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "failed\t%s\t%v\n", r.Name, r.Err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d succeeded, %d failed\n", report.Succeeded, report.Failed)
		return
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Outer-join yearly tables on (x, y) coordinates",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		out := cfg.Merge.Output
		if mergeOut != "" {
			out = mergeOut
		}
		if out == "" {
			return fmt.Errorf("%w: merge output is required", rastvec.ErrInvalidConfig)
		}
		g := rastvec.NewGdalToolbox(cfg)
		merged, err := g.MergeByCoord(cmd.Context(), cfg.Merge.Inputs)
		if err != nil {
			return
		}
		if strings.EqualFold(filepath.Ext(out), rastvec.FILE_EXT_CSV) {
			err = merged.WriteCSV(out, cfg.CsvEncoding)
		} else {
			err = g.WriteMergedLayer(merged, out)
		}
		if err != nil {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rows, fields %v -> %s\n", len(merged.Rows), merged.Fields, out)
		return
	},
}

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Copy outputs into the shared project layout",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		report, err := rastvec.Organize(cmd.Context(), cfg.Organize)
		if err != nil {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d dirs, %d copied, %d skipped, %d failed\n",
			report.Dirs, report.Copied, report.Skipped, report.Failed)
		return
	},
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [base]",
	Short: "Create the project directory structure",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		base := cfg.Scaffold.Base
		if len(args) > 0 {
			base = args[0]
		}
		if base == "" {
			base = "."
		}
		created, err := utils.Scaffold(base, cfg.Scaffold.Dirs)
		if err != nil {
			return
		}
		log.Info("scaffold:created", zap.String("base", base), zap.Strings("dirs", created))
		return
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "yaml config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error")

	vectorizeCmd.Flags().StringVar(&inputDir, "input-dir", "", "dir holding the rasters")
	vectorizeCmd.Flags().StringVar(&outputDir, "output-dir", "", "output root (vector/ and csv/ below it)")
	vectorizeCmd.Flags().StringSliceVar(&labels, "labels", nil, "band labels, e.g. 2018,2019,2020")
	vectorizeCmd.Flags().IntVar(&workers, "workers", 1, "rasters processed in parallel")

	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "merged output (.csv, .gpkg, .shp or .geojson)")

	rootCmd.AddCommand(vectorizeCmd, mergeCmd, organizeCmd, scaffoldCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
