package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/pidfocus/internal/config"
	"github.com/bryanchriswhite/pidfocus/internal/focus"
	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/bryanchriswhite/pidfocus/internal/watcher"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "pidfocus",
		Short: "pidfocus - Track and control X11 focus by process ID",
		Long: `pidfocus reports which process owns the focused X11 window and raises
windows by the PID of the process that owns them.

Features:
  • Resolve the focused window to a PID via _NET_WM_PID
  • Emit an event each time focus moves to another process
  • Ask the window manager to activate a process's window
  • REST and WebSocket API for integration
  • Optional D-Bus service on the session bus`,
		SilenceUsage: true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pidfocus/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("display", "", "X11 display (default is $DISPLAY)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("display", rootCmd.PersistentFlags().Lookup("display"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the config file, applies command-line overrides without
// persisting them and initializes logging.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			if err := configMgr.SetPort(port); err != nil {
				return nil, err
			}
		}
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			if err := configMgr.SetLogLevel(level); err != nil {
				return nil, err
			}
		}
	}

	if viper.IsSet("display") {
		if display := viper.GetString("display"); display != "" {
			if err := configMgr.SetDisplay(display); err != nil {
				return nil, err
			}
		}
	}

	if viper.IsSet("dbus_enabled") && viper.GetBool("dbus_enabled") {
		if err := configMgr.Set("dbus_enabled", true); err != nil {
			return nil, err
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	logger.WithComponent("config").Debug().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	return configMgr, nil
}

// newFocusManager builds the watcher and focus hub for cfg
func newFocusManager(cfg *config.Config, opts ...focus.Option) (*focus.Manager, window.Dialer) {
	dial := window.DisplayDialer(cfg.Display)
	w := watcher.New(
		watcher.WithDialer(dial),
		watcher.WithInterval(cfg.PollInterval),
		watcher.WithBufferSize(cfg.EventBuffer),
	)
	return focus.NewManager(w, dial, opts...), dial
}

// probeDisplay fails fast when the X server can't be reached
func probeDisplay(dial window.Dialer) error {
	conn, err := dial()
	if err != nil {
		return fmt.Errorf("%w: %w", window.ErrDisplayUnavailable, err)
	}
	conn.Close()
	return nil
}

// describe looks up process details, returning nil when unavailable
func describe(resolver *process.Resolver, pid int) *process.Info {
	if resolver == nil {
		return nil
	}
	info, err := resolver.Lookup(pid)
	if err != nil {
		logger.WithComponent("process").Debug().Err(err).Int("pid", pid).Msg("No process details")
		return nil
	}
	return &info
}
