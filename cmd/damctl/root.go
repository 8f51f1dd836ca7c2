package main

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/damkit/go-damclient/client"
	"github.com/damkit/go-damclient/config"
	"github.com/damkit/go-damclient/metrics"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app is the state shared by the subcommands, set up before any of them runs.
type app struct {
	configPath string
	debug      bool

	config   *config.Config
	logger   log.Logger
	client   *client.Client
	registry *promclient.Registry
}

func newApp() *app {
	return &app{logger: log.NewLogger()}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "damctl",
		Short:        "Upload, download and manage assets of a DAM portal",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path of the YAML config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logs")

	root.AddCommand(
		newUploadCommand(a),
		newDownloadCommand(a),
		newMediaCommand(a),
		newExportCommand(a),
		newAuthCommand(a),
	)

	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.config = cfg
	a.logger.EnableDebugLog(a.debug || cfg.Debug)

	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		a.registry = promclient.NewRegistry()
		observer, err := metrics.NewPrometheusObserver(cfg.Metrics.Namespace, a.registry)
		if err != nil {
			return err
		}
		clientConfig.Observer = observer
	}

	a.client, err = client.New(clientConfig, a.logger)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (a *app) writeMetrics() error {
	if a.registry == nil || a.config.Metrics.Textfile == "" {
		return nil
	}
	if err := promclient.WriteToTextfile(a.config.Metrics.Textfile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.logger.Debugf("Metrics written to %s", a.config.Metrics.Textfile)
	return nil
}
