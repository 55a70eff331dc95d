package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/network"
	"github.com/bnema/wayseat/internal/server"
	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/ui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <trace file>",
	Short: "Browse a recorded trace",
	Long: `Inspect opens a recorded trace in a full-screen browser. With --ssh the
browser is served to remote terminals instead; keys that are not on the
inspector whitelist must be approved here first.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("ssh", false, "Serve the inspector over SSH")
	inspectCmd.Flags().Int("port", 0, "SSH port (default from config)")
	inspectCmd.Flags().Bool("table", false, "Print the events as a table and exit")
}

func loadTrace(path string) ([]trace.Event, error) {
	f, err := os.Open(server.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	return trace.Read(f)
}

func runInspect(cmd *cobra.Command, args []string) error {
	events, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	title := filepath.Base(args[0])

	if table, _ := cmd.Flags().GetBool("table"); table {
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatAppHeader("TRACE", fmt.Sprintf("%s: %d events", title, len(events))))
		if len(events) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.EventTable(events))
		}
		return nil
	}

	if useSSH, _ := cmd.Flags().GetBool("ssh"); useSSH {
		cfg := config.Get().Inspector
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.SSHPort = port
		}
		cfg.HostKeyPath = server.ExpandPath(cfg.HostKeyPath)

		srv := network.NewInspectorServer(cfg, title, events)
		srv.OnAuthRequest = approveKey()
		if err := srv.Start(cmd.Context()); err != nil {
			return err
		}
		bar := ui.NewStatusBar("WAYSEAT INSPECTOR")
		bar.Width = 72
		bar.Connected = true
		bar.Status = fmt.Sprintf("serving %s on %s", title, srv.Addr())
		fmt.Fprintln(cmd.OutOrStdout(), bar.View())
		if !cfg.WhitelistOnly {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatWarning("whitelist-only mode is off, any SSH key can connect"))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
		<-cmd.Context().Done()
		srv.Stop()
		return nil
	}

	model := ui.NewInspectorModel(title, events)
	return ui.RunProgram(cmd.Context(), model, ui.ProgramConfig{AltScreen: true})
}

// approveKey asks on the local terminal before an unknown key may connect.
// Prompts are shown one at a time.
func approveKey() func(addr, fingerprint string) bool {
	var mu sync.Mutex
	return func(addr, fingerprint string) bool {
		mu.Lock()
		defer mu.Unlock()

		approved := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("Allow inspector connection from %s?", addr)).
			Description("Key " + fingerprint).
			Affirmative("Allow").
			Negative("Deny").
			Value(&approved)
		if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
			logger.Warn("Approval prompt failed", "err", err)
			return false
		}
		return approved
	}
}
