package commands

import (
	"fmt"
	"strconv"

	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/spf13/cobra"
)

var focusCmd = &cobra.Command{
	Use:   "focus PID",
	Short: "Focus a window of the given process",
	Long: `Ask the window manager to activate the first window owned by PID.

Windows are searched depth-first from the root. When no window belongs to
the process nothing happens.`,
	Example: `  # Focus the window of process 4242
  pidfocus focus 4242`,
	Args: cobra.ExactArgs(1),
	RunE: runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) error {
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", window.ErrInvalidPID, args[0])
	}

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	dial := window.DisplayDialer(configMgr.Get().Display)
	if err := window.FocusWindowOfProcess(dial, pid); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Requested focus for PID %d\n", pid)
	return nil
}
