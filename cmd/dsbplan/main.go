package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/schooldashboard/dsbplan"
	"github.com/schooldashboard/dsbplan/config"
	"github.com/schooldashboard/dsbplan/internal"
	"github.com/schooldashboard/dsbplan/parser"
)

var (
	configPath string
	verbose    bool
	rawHTML    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "dsbplan",
	Short:         "DSBmobile substitution plan aggregator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadAppConfig(configPath); err != nil {
			if cmd.Name() != "parse" || !errors.Is(err, config.ErrNotFound) {
				return err
			}
			// parse works without a config file
			cfg, perr := config.Parse(nil)
			if perr != nil {
				return perr
			}
			config.Config = cfg
		}
		var err error
		logger, err = internal.NewLogger(config.Config.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		gin.SetMode(gin.ReleaseMode)
		app, err := dsbplan.NewApp(config.Config, logger)
		if err != nil {
			return err
		}
		defer func() { _ = app.Close() }()
		app.Serve(cmd.Context())
		return nil
	},
}

var oneshotCmd = &cobra.Command{
	Use:   "oneshot",
	Short: "Run a single update cycle and print the plans as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := dsbplan.NewApp(config.Config, logger)
		if err != nil {
			return err
		}
		defer func() { _ = app.Close() }()
		if err := app.Aggregator.Update(cmd.Context()); err != nil {
			return err
		}
		return printJSON(app.Aggregator.Plans())
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <url|file>",
	Short: "Parse one detail page and print the plan as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := newFetcher(parser.NewFromConfig(config.Config.Parser, logger))
		doc, err := f.fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if rawHTML {
			fmt.Println(doc.RawHTML)
			return nil
		}
		return printJSON(doc.Plan)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yml or ./configs/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	parseCmd.Flags().BoolVar(&rawHTML, "raw", false, "Print the decoded HTML instead of the plan")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(oneshotCmd)
	rootCmd.AddCommand(parseCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
