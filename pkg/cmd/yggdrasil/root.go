// Package yggdrasil is the command line interface for trying out and
// debugging the Yggdrasil login and session-join handshake.
package yggdrasil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.minekube.com/yggdrasil/pkg/config"
	"go.minekube.com/yggdrasil/pkg/version"
)

// Execute runs App() and calls os.Exit when finished.
// Requests in flight are canceled on termination signals.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	err := App().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is shared by all commands and set up before any of them runs.
type env struct {
	cfg *config.Config
	log logr.Logger
}

func App() *cli.App {
	app := cli.NewApp()
	app.Name = "yggdrasil"
	app.Usage = "Minecraft Yggdrasil login and session-join toolkit."
	app.Description = `Log in to a Mojang account, join servers via the session server
and verify joined players like an online mode server does.`
	app.Version = version.String()

	// -v is taken by verbosity
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	var (
		debug      bool
		configFile string
		verbosity  int
		e          = new(env)
		shutdown   func()
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       `config file (default: ./config.yml) Supports: yaml/yml, json, toml, hcl, ini, prop/properties/props, env/dotenv`,
			EnvVars:     []string{"YGGDRASIL_CONFIG"},
			Destination: &configFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "Enable debug mode and highest log verbosity",
			Destination: &debug,
			EnvVars:     []string{"YGGDRASIL_DEBUG"},
		},
		&cli.IntFlag{
			Name:        "verbosity",
			Aliases:     []string{"v"},
			Usage:       "The higher the verbosity the more logs are shown",
			EnvVars:     []string{"YGGDRASIL_VERBOSITY"},
			Destination: &verbosity,
		},
		cli.VersionFlag,
	}
	app.Before = func(c *cli.Context) error {
		v, err := initViper(c, configFile)
		if err != nil {
			return cli.Exit(err, 1)
		}
		cfg, err := config.Load(v)
		if err != nil {
			return cli.Exit(err, 1)
		}

		// Flags overwrite config
		debug = debug || cfg.Debug
		cfg.Debug = debug
		if !c.IsSet("verbosity") && debug {
			verbosity = math.MaxInt8
		}

		log, err := newLogger(debug, verbosity)
		if err != nil {
			return cli.Exit(fmt.Errorf("error creating zap logger: %w", err), 1)
		}
		c.Context = logr.NewContext(c.Context, log)

		if v.ConfigFileUsed() != "" {
			log.Info("using config file", "config", v.ConfigFileUsed())
		}

		warns, errs := cfg.Validate()
		for _, warn := range warns {
			log.Info("config validation warn", "warn", warn)
		}
		if len(errs) != 0 {
			for _, err := range errs {
				log.Info("config validation error", "error", err)
			}
			return cli.Exit(errors.New("invalid config"), 1)
		}

		if shutdown, err = initTelemetry(log); err != nil {
			return cli.Exit(err, 1)
		}

		e.cfg = cfg
		e.log = log
		return nil
	}
	app.After = func(c *cli.Context) error {
		if shutdown != nil {
			shutdown()
		}
		return nil
	}
	app.Commands = []*cli.Command{
		digestCommand(),
		loginCommand(e),
		hasJoinedCommand(e),
		configCommand(),
	}
	return app
}

func initViper(c *cli.Context, configFile string) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)
	if c.IsSet("config") {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	// Load Environment Variables
	v.SetEnvPrefix("YGGDRASIL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return v, fmt.Errorf("error reading config file %q: %w", v.ConfigFileUsed(), err)
		}
	}
	return v, nil
}

// newLogger returns a new zap logger with a modified production
// or development default config to ensure human readability.
func newLogger(debug bool, v int) (l logr.Logger, err error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))

	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}
