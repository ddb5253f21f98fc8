package commands

import (
	"encoding/json"
	"fmt"

	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/spf13/cobra"
)

var (
	currentFormat  string
	currentDetails bool
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the PID of the focused window",
	Example: `  # Print the PID
  pidfocus current

  # As JSON with process details
  pidfocus current --format json --details`,
	RunE: runCurrent,
}

func init() {
	rootCmd.AddCommand(currentCmd)

	currentCmd.Flags().StringVarP(&currentFormat, "format", "f", "text", "output format (text or json)")
	currentCmd.Flags().BoolVar(&currentDetails, "details", false, "include process name and command line")
}

func runCurrent(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	pid, err := window.QueryFocusedPID(window.DisplayDialer(configMgr.Get().Display))
	if err != nil {
		return err
	}

	var info *process.Info
	if currentDetails && pid > 0 {
		resolver, err := process.NewResolver("")
		if err != nil {
			return fmt.Errorf("failed to open /proc: %w", err)
		}
		info = describe(resolver, pid)
	}

	out := cmd.OutOrStdout()
	switch currentFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			PID     int           `json:"pid"`
			Process *process.Info `json:"process,omitempty"`
		}{pid, info})
	case "text":
		if pid == 0 {
			fmt.Fprintln(out, "No window with a known owner is focused")
			return nil
		}
		fmt.Fprintf(out, "PID:      %d\n", pid)
		if info != nil {
			fmt.Fprintf(out, "Name:     %s\n", info.Name())
			fmt.Fprintf(out, "Exe:      %s\n", info.Executable)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'text' or 'json')", currentFormat)
	}
}
