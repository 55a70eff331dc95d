package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "wayseat",
	Short: "wayseat - Wayland seat input delivery",
	Long: `wayseat implements the compositor side of wl_seat: pointer, keyboard and
touch focus, enter/leave pairing, serials and per-client event fan-out.
Scenarios are replayed against an in-process compositor and the resulting
wire events can be recorded, dumped and inspected.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		config.SetConfigPath(path)
		if err := config.Init(); err != nil {
			return err
		}

		// The flag wins, then the config file, then LOG_LEVEL
		logger.SetLevel(viper.GetString("logging.log_level"))
		return nil
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	rootCmd.Version = Version
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().String("config", "", "Config file (default: search /etc/wayseat, ~/.config/wayseat, .)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	_ = viper.BindPFlag("logging.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
