package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hillview/lookout/internal/config"
	"github.com/hillview/lookout/internal/printer"
	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	submitConfigPath string
	submitInternal   bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <category> [payload-json]",
	Short: "Publish an update event to a running instance",
	Long: `Publish a single update event onto the instance's update channel. The
category is one of config, sources, area, bearing. The payload is inline
JSON matching the category's wire format; omit it (or pass --internal)
to request a recompute of the category's last payload.

Examples:
  # Move the viewport
  lookout submit area '{"top_left_lat":40.8,"top_left_lon":-74.1,"bottom_right_lat":40.7,"bottom_right_lon":-74.0}'

  # Turn the camera
  lookout submit bearing 135.0

  # Re-run the area derivation without changing the box
  lookout submit area --internal`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitConfigPath, "config", "lookout.yml", "Path to lookout.yml")
	submitCmd.Flags().BoolVar(&submitInternal, "internal", false, "Recompute with the last payload instead of replacing it")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if _, err := updates.ParseCategory(args[0]); err != nil {
		return printer.Error(
			"Unknown category",
			err.Error(),
			[]string{"Use one of: config, sources, area, bearing"},
		)
	}

	var payload json.RawMessage
	if len(args) == 2 {
		if submitInternal {
			return fmt.Errorf("--internal cannot be combined with a payload")
		}
		if !json.Valid([]byte(args[1])) {
			return printer.Error(
				"Invalid payload",
				fmt.Sprintf("%q is not valid JSON", args[1]),
				[]string{"Quote the payload so the shell passes it through intact"},
			)
		}
		payload = json.RawMessage(args[1])
	} else if !submitInternal {
		return fmt.Errorf("a payload is required unless --internal is set")
	}

	cfg, err := config.Load(submitConfigPath)
	if err != nil {
		return printer.Error(
			"Could not load configuration",
			fmt.Sprintf("Reading %s failed: %v", submitConfigPath, err),
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := &viewbus.UpdateEvent{
		Category: args[0],
		Payload:  payload,
		Internal: submitInternal,
	}
	if err := bus.PublishUpdate(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish update event: %w", err)
	}

	printer.Success("Published %s update to instance '%s'\n", args[0], cfg.Instance)
	return nil
}
