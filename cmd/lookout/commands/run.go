package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/hillview/lookout/internal/config"
	"github.com/hillview/lookout/internal/pipeline"
	"github.com/hillview/lookout/internal/printer"
	"github.com/hillview/lookout/internal/scheduler"
	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the update scheduler and pipeline",
	Long: `Run the Lookout scheduler: subscribe to the instance's update events,
fold them into the four category channels, and publish derived views
(visible photos, best-facing photo) back onto the bus.

The initial source configuration is seeded from lookout.yml; later config
update events replace it at runtime.

Examples:
  # Run with the default config file
  lookout run

  # Run with an explicit config file
  lookout run --config ./deploy/lookout.yml`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "lookout.yml", "Path to lookout.yml")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return printer.Error(
			"Could not load configuration",
			fmt.Sprintf("Reading %s failed: %v", runConfigPath, err),
			[]string{"Create a lookout.yml in the current directory", "Point --config at an existing file"},
		)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return printer.Error(
			"Invalid Redis URL",
			fmt.Sprintf("Could not parse %q: %v", cfg.Redis.URL, err),
			[]string{"Use the form redis://host:port in the redis.url config field"},
		)
	}

	bus, err := viewbus.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		return fmt.Errorf("failed to create view bus client: %w", err)
	}
	defer bus.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := bus.Ping(pingCtx); err != nil {
		return printer.Error(
			"Redis not accessible",
			fmt.Sprintf("Could not reach %s: %v", cfg.Redis.URL, err),
			[]string{"Start Redis", "Fix the redis.url config field"},
		)
	}

	engine := scheduler.NewEngine(cfg.Instance)
	pipe := pipeline.New(cfg.Instance, bus)
	pipe.Register(engine)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.SubscribeUpdateEvents(runCtx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to update events: %w", err)
	}
	defer sub.Close()

	// Seed the initial source configuration from lookout.yml; later config
	// events on the bus supersede it.
	enabled := cfg.EnabledSources()
	sort.Strings(enabled)
	engine.Submit(updates.CategoryConfig, viewbus.SourceConfig{
		Enabled:    enabled,
		MaxVisible: *cfg.Pipeline.MaxVisible,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(runCtx)
	}()

	// Feed inbound update events into the scheduler.
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				cat, payload, err := ev.DecodePayload()
				if err != nil {
					log.Printf("[Lookout] Dropping update event: %v", err)
					continue
				}
				if ev.Internal {
					engine.SubmitInternal(cat)
				} else {
					engine.Submit(cat, payload)
				}
			case err, ok := <-sub.Errors():
				if !ok {
					return
				}
				log.Printf("[Lookout] Update subscription error: %v", err)
			}
		}
	}()

	printer.Success("Lookout running for instance '%s' (%d sources enabled)\n", cfg.Instance, len(enabled))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		printer.Info("Received signal %v, shutting down gracefully...\n", sig)
		engine.Shutdown()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			return fmt.Errorf("scheduler error: %w", runErr)
		}
	}

	printer.Success("Lookout stopped\n")
	return nil
}
