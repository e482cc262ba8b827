package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/vitalvas/prometheus-pve-sd/internal/config"
	"github.com/vitalvas/prometheus-pve-sd/internal/logging"
	"github.com/vitalvas/prometheus-pve-sd/internal/server"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configFile string
	outputFile string
	mode       string
	loopDelay  int
	noService  bool
	logFormat  string
	verbose    int
	quiet      int
}

func newRootCommand(runFn func(context.Context, config.Overrides) error) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "prometheus-pve-sd",
		Short:         "Prometheus file service discovery for Proxmox VE",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFn(cmd.Context(), opts.overrides(cmd))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "location of configuration file (default: "+config.DefaultConfigFile()+")")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "output file for the discovered targets")
	flags.StringVarP(&opts.mode, "mode", "m", "", "output file mode as octal string")
	flags.IntVarP(&opts.loopDelay, "loop-delay", "d", 0, "delay between discovery loops in seconds")
	flags.BoolVar(&opts.noService, "no-service", false, "run discovery only once and exit")
	flags.StringVarP(&opts.logFormat, "log-format", "f", "", "log format: console, simple or json")
	flags.CountVarP(&opts.verbose, "verbose", "v", "increase logging verbosity, repeatable")
	flags.CountVarP(&opts.quiet, "quiet", "q", "decrease logging verbosity, repeatable")

	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	return cmd
}

// overrides keeps only the flags given on the command line so that the
// file and environment values stay in effect for the rest.
func (o *options) overrides(cmd *cobra.Command) config.Overrides {
	flags := cmd.Flags()
	result := config.Overrides{
		Verbosity: o.verbose - o.quiet,
	}

	if flags.Changed("config") {
		result.ConfigFile = &o.configFile
	}
	if flags.Changed("output") {
		result.OutputFile = &o.outputFile
	}
	if flags.Changed("mode") {
		result.OutputFileMode = &o.mode
	}
	if flags.Changed("loop-delay") {
		result.LoopDelay = &o.loopDelay
	}
	if flags.Changed("no-service") {
		service := !o.noService
		result.Service = &service
	}
	if flags.Changed("log-format") {
		result.LogFormat = &o.logFormat
	}

	return result
}

func run(ctx context.Context, overrides config.Overrides) error {
	cfg, err := config.Load(overrides)
	if err != nil {
		return err
	}

	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	if cfg.ConfigFile != "" {
		logging.Infof("Using config file %s", cfg.ConfigFile)
	}
	logging.Debugf("Effective configuration: %s", cfg)

	srv, err := server.New(cfg, logging.GetLogger())
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func main() {
	if err := newRootCommand(run).ExecuteContext(context.Background()); err != nil {
		logging.Error(err)
		os.Exit(1)
	}
}
