// Package viewbus provides the shared wire types and Redis Pub/Sub client
// that connect a Lookout process to the rest of the viewer.
//
// # Overview
//
// The scheduler core is purely in-process; the view bus is its boundary
// adapter. Inbound, the UI bridge and sensor adapters publish update events
// (configuration changes, source batches, the visible area, the viewing
// bearing) that `lookout run` folds into the scheduler. Outbound, the
// pipeline's processors publish view events (the visible photo list and the
// best-facing photo) for the rendering layer to draw.
//
// Correctness never depends on Redis: the scheduler and pipeline run and
// are tested without it. The bus exists so producers and consumers outside
// the process have a well-defined place to meet.
//
// # Multi-Instance Support
//
// All channels are namespaced by instance name so multiple Lookout
// instances can share one Redis server without interference:
//
//	lookout:{instance_name}:update_events
//	lookout:{instance_name}:view_events
//
// # Usage Example
//
//	client, err := viewbus.NewClient(redisOpts, "default-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	// UI bridge side: push a new viewing bearing.
//	err = client.PublishUpdate(ctx, &viewbus.UpdateEvent{
//		Category: "bearing",
//		Payload:  json.RawMessage("134.5"),
//	})
//
//	// Rendering side: follow derived views.
//	sub, err := client.SubscribeViewEvents(ctx)
//	for ev := range sub.Events() {
//		draw(ev.Photos)
//	}
//
// Events are delivered at-most-once (Redis Pub/Sub semantics). That is
// acceptable here because every event is superseded by the next one; a
// dropped view event costs one stale frame, never correctness.
package viewbus
