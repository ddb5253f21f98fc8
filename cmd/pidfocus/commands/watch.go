package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/pidfocus/internal/focus"
	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/spf13/cobra"
)

var (
	watchFormat  string
	watchDetails bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print focus changes as they happen",
	Long: `Watch the focused window and print the owning PID each time focus
moves to a window of another process. Windows without a known owner are
skipped.`,
	Example: `  # Print changes as text
  pidfocus watch

  # One JSON object per line, with process details
  pidfocus watch --format json --details`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "text", "output format (text or json)")
	watchCmd.Flags().BoolVar(&watchDetails, "details", false, "include process name and command line")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFormat != "text" && watchFormat != "json" {
		return fmt.Errorf("unsupported format: %s (use 'text' or 'json')", watchFormat)
	}

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	var opts []focus.Option
	if watchDetails {
		resolver, err := process.NewResolver("")
		if err != nil {
			return fmt.Errorf("failed to open /proc: %w", err)
		}
		opts = append(opts, focus.WithDescriber(resolver))
	}

	focusMgr, dial := newFocusManager(cfg, opts...)
	defer focusMgr.Close()

	if err := probeDisplay(dial); err != nil {
		return err
	}

	events, err := focusMgr.Subscribe(focus.EventPIDChanged)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	out := cmd.OutOrStdout()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := printEvent(out, watchFormat, ev); err != nil {
				return err
			}
		case <-sigChan:
			return nil
		}
	}
}

func printEvent(w io.Writer, format string, ev focus.Event) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(ev)
	}

	line := fmt.Sprintf("%s  %d", ev.Time.Format(time.TimeOnly), ev.PID)
	if ev.Process != nil {
		line += "  " + ev.Process.String()
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
