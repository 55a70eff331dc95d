package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/scenario"
	"github.com/bnema/wayseat/internal/server"
	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/ui"
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay an input scenario against an in-process compositor",
	Long: `Replay connects the scenario's clients, binds their seats and devices, then
feeds the input steps through the seat. Every event sent to a client is
recorded; expect steps check the recording as the run goes.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringP("out", "o", "", "Write the recorded events to a trace file")
	replayCmd.Flags().String("wire-dump", "", "Write every event as raw wire messages to this file")
	replayCmd.Flags().Bool("events", false, "Print every recorded event")
	replayCmd.Flags().Bool("inspect", false, "Open the trace inspector when the replay is done")
}

func runReplay(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	outPath, _ := cmd.Flags().GetString("out")
	dumpPath, _ := cmd.Flags().GetString("wire-dump")
	showEvents, _ := cmd.Flags().GetBool("events")
	inspect, _ := cmd.Flags().GetBool("inspect")

	sc, err := scenario.LoadFile(args[0])
	if err != nil {
		return err
	}

	srv, err := server.New(config.Get())
	if err != nil {
		return err
	}

	var dump *os.File
	if dumpPath != "" {
		dump, err = os.Create(server.ExpandPath(dumpPath))
		if err != nil {
			return fmt.Errorf("failed to create wire dump: %w", err)
		}
		defer dump.Close()
		srv.SetWireDump(dump)
	}

	res, runErr := scenario.NewRunner(srv).Run(cmd.Context(), sc)
	if err := srv.Close(); err != nil {
		logger.Warn("Failed to close server", "err", err)
	}

	name := sc.Name
	if name == "" {
		name = args[0]
	}
	fmt.Fprintln(out, ui.FormatAppHeader("REPLAY", name))
	fmt.Fprintf(out, "%d/%d steps, %d events\n\n", res.Steps, len(sc.Steps), len(res.Events))
	for _, failure := range res.Failures {
		fmt.Fprintln(out, ui.FormatResult(false, "expect", failure))
	}
	if runErr == nil && !hasExpectations(sc) {
		fmt.Fprintln(out, ui.FormatWarning("scenario has no expect steps, nothing was checked"))
	}
	if runErr == nil {
		fmt.Fprintln(out, ui.FormatResult(true, "replay", "all expectations met"))
	} else if !errors.Is(runErr, scenario.ErrExpectationsFailed) {
		fmt.Fprintln(out, ui.FormatResult(false, "replay", runErr.Error()))
	}

	if len(res.Events) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.SummaryTable(res.Events))
	}
	if showEvents && len(res.Events) > 0 {
		fmt.Fprintln(out, ui.EventTable(res.Events))
	}

	if outPath != "" {
		if err := writeTrace(server.ExpandPath(outPath), res.Events); err != nil {
			return err
		}
		logger.Info("Trace written", "path", outPath, "events", len(res.Events))
	}

	if inspect {
		model := ui.NewInspectorModel(name, res.Events)
		if err := ui.RunProgram(cmd.Context(), model, ui.ProgramConfig{AltScreen: true}); err != nil {
			return err
		}
	}

	return runErr
}

func hasExpectations(sc *scenario.Scenario) bool {
	for _, step := range sc.Steps {
		if step.Expect != nil {
			return true
		}
	}
	return false
}

func writeTrace(path string, events []trace.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := trace.Write(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
