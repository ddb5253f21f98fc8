package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/pidfocus/internal/api"
	"github.com/bryanchriswhite/pidfocus/internal/bus"
	"github.com/bryanchriswhite/pidfocus/internal/focus"
	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pidfocus server",
	Long: `Start the pidfocus HTTP server.

The server provides a REST API to query and change focus by PID and a
WebSocket stream of focus events. With --dbus the same operations are
published on the session bus as io.github.bryanchriswhite.PidFocus.`,
	Example: `  # Start server on default port (8080)
  pidfocus serve

  # Start server on custom port
  pidfocus serve --port 9090

  # Also publish the D-Bus service
  pidfocus serve --dbus

  # Start with debug logging
  pidfocus serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "server port (default is 8080)")
	serveCmd.Flags().Bool("dbus", false, "publish the D-Bus service")
	viper.BindPFlag("server_port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("dbus_enabled", serveCmd.Flags().Lookup("dbus"))
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log := logger.WithComponent("serve")

	var opts []focus.Option
	resolver, err := process.NewResolver("")
	if err != nil {
		log.Warn().Err(err).Msg("Process details unavailable")
	} else {
		opts = append(opts, focus.WithDescriber(resolver))
	}

	focusMgr, dial := newFocusManager(cfg, opts...)
	defer focusMgr.Close()

	var describer focus.Describer
	if resolver != nil {
		describer = resolver
	}
	server := api.NewServer(focusMgr, dial, configMgr, describer)

	if cfg.DBusEnabled {
		svc, err := bus.Start(focusMgr)
		if err != nil {
			return fmt.Errorf("failed to start D-Bus service: %w", err)
		}
		defer svc.Close()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(cfg.ServerPort)
	}()

	log.Info().
		Str("web", fmt.Sprintf("http://localhost:%d", cfg.ServerPort)).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Bool("dbus", cfg.DBusEnabled).
		Msg("pidfocus is running, press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
