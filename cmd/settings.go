package cmd

import (
	"fmt"

	"github.com/dkorittki/imgprof/pkg/settings"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change the remembered inputs",
		Long: `The mode, URL list, comparison base URL and cache busting flag
are remembered between runs. Use the subcommands to inspect or change them.

Keys: mode, urlInput, comparisonBaseUrl, cacheBust`,
	}

	settingsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the remembered inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			s := settings.Load(store)
			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"Key", "Value"}),
			)
			for _, key := range settings.Keys {
				if err := table.Append([]string{key, s.Value(key)}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	settingsSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one remembered input",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			s, err := settings.SetField(store, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], s.Value(args[0]))
			return nil
		},
	}

	settingsResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Restore the default inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			if err := settings.Save(store, settings.Default()); err != nil {
				return err
			}

			logger.Info().Str("file", store.Path()).Msg("Settings reset")
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
}
