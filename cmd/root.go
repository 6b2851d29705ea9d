// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/internal/config"
	"github.com/xkilldash9x/boxlens/internal/observability"
)

const envPrefix = "BOXLENS"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "boxlens",
		Short:         "boxlens overlays the CSS box model of a live page.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}
	root.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("headless", true, "run the browser without a window")
	pf.Int("max-elements", 300, "element cap for a sweep pass")
	pf.Int("max-gap-segments", 600, "gap segment cap for a sweep pass")
	pf.Float64("min-label", 12, "narrowest band, in CSS pixels, that gets a label")
	a.bind("logger.level", pf.Lookup("log-level"))
	a.bind("browser.headless", pf.Lookup("headless"))
	a.bind("inspector.max_elements", pf.Lookup("max-elements"))
	a.bind("inspector.max_gap_segments", pf.Lookup("max-gap-segments"))
	a.bind("inspector.min_label_thickness_px", pf.Lookup("min-label"))

	root.AddCommand(
		newSweepCmd(a),
		newHoverCmd(a),
		newWatchCmd(a),
		newCaptureCmd(a),
		newReplayCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed.", zap.Error(err))
	}
	observability.Sync()
	return err
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding %s: %v", key, err))
	}
}

// initialize reads the config file and environment, validates the result and
// starts the logger.
func (a *app) initialize() error {
	if err := initializeConfig(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded.", zap.String("config_file", a.v.ConfigFileUsed()))
	return nil
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}
