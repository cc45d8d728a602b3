package cmd

import (
	"os"
	"time"

	"github.com/dkorittki/imgprof/pkg/profiler/config"
	"github.com/dkorittki/imgprof/pkg/settings"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	debug       bool
	profilerCfg *config.ProfilerConfig
	logger      = zerolog.New(
		zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC1123,
		}).With().Timestamp().Logger()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgprof",
	Short: "An image load latency profiler",
	Long: `Imgprof measures how long each image of a URL list takes to load
and summarizes the results with averages, percentiles and a histogram.

In comparison mode every image is loaded a second time from another
origin, and imgprof reports which of both origins is faster.

The URL list, mode, comparison base URL and cache busting flag are
remembered between invocations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.imgprof.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = logger
}

// initConfig reads in the config file if there is one.
func initConfig() error {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "cannot find home directory")
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".imgprof")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return errors.Wrap(err, "cannot read config file")
		}
		logger.Debug().Msg("no config file found, using defaults")
	} else {
		logger.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}

	cfg, err := config.NewProfilerConfig(viper.Sub("profiler"))
	if err != nil {
		return errors.Wrap(err, "cannot parse config file")
	}

	profilerCfg = cfg
	return nil
}

// openStore opens the settings file configured or the default one.
func openStore() (*settings.FileStore, error) {
	path := profilerCfg.SettingsFile
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot expand settings path")
	}

	store, err := settings.OpenFileStore(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open settings")
	}

	logger.Debug().Str("file", store.Path()).Msg("using settings file")
	return store, nil
}
