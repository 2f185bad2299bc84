// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - StudentEvent: outcome of one student's plan generation
//   - HookEvent: failure of the post-success notification hook
//   - BatchEvent: summary of a completed batch run
//   - PlanEvent: a generated plan was persisted
//   - CarryoverEvent: summary of a carryover pass
package events
