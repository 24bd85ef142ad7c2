// Package events defines the door events emitted on the event bus.
//
// Available event types:
//   - CommandEvent: recognized command accepted from the command topic
//   - StatusEvent: status published on the status topic
//   - IgnoredEvent: unrecognized payload dropped without action
//   - CycleEvent: completed two-phase announcement for one command
package events
