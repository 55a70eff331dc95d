package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wayseat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatAppHeader("CONFIGURATION", config.GetConfigPath()))

		sections := []ui.InfoPanel{
			{Title: "[seat]", Content: []string{
				fmt.Sprintf("name: %s", cfg.Seat.Name),
				fmt.Sprintf("capabilities: %s", strings.Join(cfg.Seat.Capabilities, ", ")),
				fmt.Sprintf("version: %d", cfg.Seat.Version),
			}},
			{Title: "[pointer]", Content: []string{
				fmt.Sprintf("edge_epsilon: %g", cfg.Pointer.EdgeEpsilon),
				fmt.Sprintf("validate_cursor_serial: %v", cfg.Pointer.ValidateCursorSerial),
			}},
			{Title: "[keyboard]", Content: []string{
				fmt.Sprintf("repeat_rate: %d", cfg.Keyboard.RepeatRate),
				fmt.Sprintf("repeat_delay: %d", cfg.Keyboard.RepeatDelay),
			}},
			{Title: "[trace]", Content: []string{
				fmt.Sprintf("max_events: %d", cfg.Trace.MaxEvents),
				fmt.Sprintf("flush_delay_ms: %d", cfg.Trace.FlushDelayMs),
				fmt.Sprintf("buffer_size: %d", cfg.Trace.BufferSize),
			}},
			{Title: "[inspector]", Content: []string{
				fmt.Sprintf("address: %s:%d", cfg.Inspector.BindAddress, cfg.Inspector.SSHPort),
				fmt.Sprintf("host_key_path: %s", cfg.Inspector.HostKeyPath),
				fmt.Sprintf("whitelist_only: %v", cfg.Inspector.WhitelistOnly),
				fmt.Sprintf("whitelisted keys: %d", len(cfg.Inspector.Whitelist)),
				fmt.Sprintf("max_clients: %d", cfg.Inspector.MaxClients),
			}},
		}
		for _, section := range sections {
			fmt.Fprintln(out, section.View())
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			logger.Info("Configuration file already exists, use --force to overwrite", "path", configPath)
			return nil
		}

		cfg := *config.Get()
		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			if err := runConfigForm(&cfg); err != nil {
				return err
			}
		}

		if err := config.Update(&cfg); err != nil {
			return err
		}
		logger.Info("Configuration initialized", "path", configPath)
		return nil
	},
}

// runConfigForm lets the user adjust the common settings before saving.
func runConfigForm(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Seat name").
				Value(&cfg.Seat.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("seat name cannot be empty")
					}
					return nil
				}),
			huh.NewMultiSelect[string]().
				Title("Capabilities").
				Description("Devices advertised to clients").
				Options(huh.NewOptions("pointer", "keyboard", "touch")...).
				Value(&cfg.Seat.Capabilities),
			huh.NewConfirm().
				Title("Ignore set_cursor requests with a stale serial?").
				Value(&cfg.Pointer.ValidateCursorSerial),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Only allow whitelisted keys to open the inspector?").
				Value(&cfg.Inspector.WhitelistOnly),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration cancelled: %w", err)
	}
	return nil
}

var configInspectorCmd = &cobra.Command{
	Use:   "inspector",
	Short: "Manage the inspector SSH key whitelist",
}

var configInspectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelisted SSH keys",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		if len(cfg.Inspector.Whitelist) == 0 {
			fmt.Fprintln(out, "No SSH keys in whitelist")
		}
		for i, fp := range cfg.Inspector.Whitelist {
			fmt.Fprintf(out, "%d. %s\n", i+1, fp)
		}

		if cfg.Inspector.WhitelistOnly {
			fmt.Fprintln(out, "Whitelist-only mode is ENABLED, new keys require approval")
		} else {
			fmt.Fprintln(out, "Whitelist-only mode is DISABLED, all SSH keys are accepted")
		}
	},
}

var configInspectorAddCmd = &cobra.Command{
	Use:   "add <fingerprint>",
	Short: "Add an SSH key fingerprint to the whitelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !strings.HasPrefix(args[0], "SHA256:") {
			return fmt.Errorf("expected a SHA256 fingerprint, got %q", args[0])
		}
		if err := config.AddInspectorKey(args[0]); err != nil {
			return err
		}
		logger.Info("Added SSH key to whitelist", "key", args[0])
		return nil
	},
}

var configInspectorRemoveCmd = &cobra.Command{
	Use:   "remove <fingerprint>",
	Short: "Remove SSH key from whitelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RemoveInspectorKey(args[0]); err != nil {
			return err
		}
		logger.Info("Removed SSH key from whitelist", "key", args[0])
		return nil
	},
}

var configInspectorClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all SSH keys from whitelist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		count := len(cfg.Inspector.Whitelist)
		if count == 0 {
			logger.Info("Whitelist is already empty")
			return nil
		}

		cfg.Inspector.Whitelist = []string{}
		if err := config.Update(&cfg); err != nil {
			return err
		}
		logger.Info("Cleared whitelist", "removed", count)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configInspectorCmd)

	configInspectorCmd.AddCommand(configInspectorListCmd)
	configInspectorCmd.AddCommand(configInspectorAddCmd)
	configInspectorCmd.AddCommand(configInspectorRemoveCmd)
	configInspectorCmd.AddCommand(configInspectorClearCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().BoolP("interactive", "i", false, "Adjust settings in a form before saving")
}
