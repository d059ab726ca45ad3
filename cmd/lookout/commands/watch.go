package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hillview/lookout/internal/config"
	"github.com/hillview/lookout/internal/printer"
	"github.com/hillview/lookout/internal/watch"
	"github.com/hillview/lookout/pkg/viewbus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var watchConfigPath string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the view events published by a running instance",
	Long: `Subscribe to an instance's view event channel and print each derived
view as it is published. Useful for checking what a running scheduler is
producing without attaching a rendering client.

Examples:
  # Follow the instance named in lookout.yml
  lookout watch

  # Follow a different deployment
  lookout watch --config ./deploy/lookout.yml`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "lookout.yml", "Path to lookout.yml")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(watchConfigPath)
	if err != nil {
		return printer.Error(
			"Could not load configuration",
			fmt.Sprintf("Reading %s failed: %v", watchConfigPath, err),
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	printer.Info("Watching view events for instance '%s' (Ctrl+C to stop)\n", cfg.Instance)

	err = watch.Follow(ctx, bus, func(ev *viewbus.ViewEvent) {
		switch ev.Kind {
		case viewbus.ViewEventVisible:
			printer.Event("visible_photos seq=%d count=%d\n", ev.Seq, len(ev.Photos))
		case viewbus.ViewEventBest:
			if ev.Best == nil {
				printer.Event("best_photo seq=%d bearing=%.1f (none visible)\n", ev.Seq, ev.Bearing)
			} else {
				printer.Event("best_photo seq=%d bearing=%.1f id=%s angle=%.1f\n",
					ev.Seq, ev.Bearing, ev.Best.ID, ev.Best.CompassAngle)
			}
		default:
			printer.Event("%s seq=%d\n", ev.Kind, ev.Seq)
		}
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("view subscription failed: %w", err)
	}
	return nil
}
