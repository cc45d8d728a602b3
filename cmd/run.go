package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkorittki/imgprof/internal/pkg/report"
	"github.com/dkorittki/imgprof/internal/pkg/service/profiler"
	"github.com/dkorittki/imgprof/pkg/loader"
	"github.com/dkorittki/imgprof/pkg/profiler/config"
	"github.com/dkorittki/imgprof/pkg/profiler/filedatabackend"
	"github.com/dkorittki/imgprof/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Measure the load time of a list of image URLs",
	Long: `Run loads every image URL of the list in parallel and reports load
times, statistics and a histogram once all loads settled.

The URL list is read from the given file, from stdin if the file is '-',
or taken from the previous invocation if no file is given. One URL per
line, blank lines are ignored.

Press Ctrl+C to stop waiting for hanging loads and report the current state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("mode", "", "'single' or 'comparison' (remembered)")
	runCmd.Flags().String("base", "", "comparison base URL, e.g. 'https://cdn.example.com' (remembered)")
	runCmd.Flags().Bool("cache-bust", false, "append a timestamp parameter to every URL (remembered)")
	runCmd.Flags().String("loader", "", "image loader, one of 'http', 'chrome' or 'fake'")
	runCmd.Flags().String("protocol", "", "HTTP version of the http loader, one of 'http1', 'http2' or 'http3'")
	runCmd.Flags().Duration("timeout", 0, "fail loads taking longer than this, 0 waits forever")
	runCmd.Flags().String("chart", "", "write the histogram as PNG to this path")
	runCmd.Flags().Bool("json", false, "print the report as JSON")
	runCmd.Flags().String("result", "", "append every settled load as JSON line to this file")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := applyConfigFlags(cmd); err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	l, err := loader.New(profilerCfg)
	if err != nil {
		return errors.Wrapf(err, "'%s'", profilerCfg.Loader)
	}

	opts := []profiler.Option{
		profiler.WithBuckets(profilerCfg.Buckets),
		profiler.WithOnChange(logProgress),
	}

	resultFile, _ := cmd.Flags().GetString("result")
	if resultFile != "" {
		logger.Info().Str("file", resultFile).Msg("Using file to store results")

		db, err := filedatabackend.New(resultFile)
		if err != nil {
			logger.Error().Err(err).Msg("Cannot open resultdata file")
			return err
		}

		defer func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("Cannot close resultdata file")
			}
		}()

		opts = append(opts, profiler.WithDataBackend(db))
	}

	svc := profiler.New(store, l, opts...)

	if err := applySettingsFlags(cmd, svc, args); err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	waitCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stop waiting on sigint and sigterm
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case <-sigs:
			logger.Debug().Msg("received sigint or sigterm, stop waiting")
			cancel()
		case <-waitCtx.Done():
		}
	}()

	go func() {
		if err := svc.Run(runCtx); err != nil {
			logger.Error().Err(err).Msg("session ended")
		}
	}()

	// the result file is closed only after the last outcome was stored
	defer func() {
		stop()
		<-svc.Done()
	}()

	st := svc.Settings()
	logger.Info().
		Str("mode", st.Mode.String()).
		Str("loader", profilerCfg.Loader).
		Bool("cache_bust", st.CacheBust).
		Msg("Starting measurement")

	gen, err := svc.Submit(waitCtx)
	if err != nil {
		return err
	}

	view, err := svc.Wait(waitCtx, gen)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info().Msg("Interrupted, reporting current state")
	}

	return writeReport(cmd, os.Stdout, view)
}

// applyConfigFlags overrides the tool configuration with explicitly given flags.
func applyConfigFlags(cmd *cobra.Command) error {
	if cmd.Flags().Changed("loader") {
		profilerCfg.Loader, _ = cmd.Flags().GetString("loader")
	}
	if cmd.Flags().Changed("protocol") {
		profilerCfg.Protocol, _ = cmd.Flags().GetString("protocol")
	}
	if cmd.Flags().Changed("timeout") {
		profilerCfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	return config.ValidateProfilerConfig(profilerCfg)
}

// applySettingsFlags stores explicitly given inputs, which are remembered for the next run.
func applySettingsFlags(cmd *cobra.Command, svc *profiler.Service, args []string) error {
	if cmd.Flags().Changed("mode") {
		v, _ := cmd.Flags().GetString("mode")
		m, err := settings.ParseMode(v)
		if err != nil {
			return err
		}
		if err := svc.SetMode(m); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("base") {
		v, _ := cmd.Flags().GetString("base")
		if err := svc.SetComparisonBaseURL(v); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("cache-bust") {
		v, _ := cmd.Flags().GetBool("cache-bust")
		if err := svc.SetCacheBust(v); err != nil {
			return err
		}
	}

	if len(args) == 0 {
		return nil
	}

	text, err := readURLList(cmd, args[0])
	if err != nil {
		return err
	}
	return svc.SetURLInput(text)
}

func readURLList(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrap(err, "cannot read url list")
	}

	return string(data), nil
}

func writeReport(cmd *cobra.Command, w io.Writer, view profiler.View) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if err := report.WriteJSON(w, view); err != nil {
			return err
		}
	} else if err := report.Write(w, view); err != nil {
		return err
	}

	chartFile, _ := cmd.Flags().GetString("chart")
	if chartFile == "" {
		return nil
	}

	f, err := os.Create(chartFile)
	if err != nil {
		return errors.Wrap(err, "cannot create chart file")
	}
	defer f.Close()

	if err := report.WriteChart(f, view); err != nil {
		if errors.Is(err, report.ErrNoData) {
			_ = os.Remove(chartFile)
			logger.Warn().Msg("no successful load, chart not written")
			return nil
		}
		return err
	}

	logger.Info().Str("file", chartFile).Msg("Chart written")
	return nil
}

func logProgress(v profiler.View) {
	logger.Debug().
		Uint64("generation", v.ResultSet.Generation).
		Int("loaded", v.Base.Loaded+v.Compare.Loaded).
		Int("failed", v.Base.Failed+v.Compare.Failed).
		Int("pending", v.Base.Pending+v.Compare.Pending).
		Msg("progress")
}
