package viewbus

import "fmt"

// Redis channel pattern helpers
//
// All Pub/Sub channels are namespaced by instance name so multiple Lookout
// instances can safely coexist on a single Redis server.
//
// Channel pattern: lookout:{instance_name}:{direction}_events

// UpdateEventsChannel returns the Pub/Sub channel carrying inbound update
// events for an instance.
// Pattern: lookout:{instance_name}:update_events
func UpdateEventsChannel(instanceName string) string {
	return fmt.Sprintf("lookout:%s:update_events", instanceName)
}

// ViewEventsChannel returns the Pub/Sub channel carrying outbound derived
// view events for an instance.
// Pattern: lookout:{instance_name}:view_events
func ViewEventsChannel(instanceName string) string {
	return fmt.Sprintf("lookout:%s:view_events", instanceName)
}
