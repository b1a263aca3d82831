// Package lifecycle moves orders through
// Order Received → Preparing → Out for Delivery → Delivered without any
// client input. A Simulator registers one deferred action per step with a
// Scheduler; each action performs a conditional advance against the store,
// so the outcome does not depend on the order in which actions complete.
//
// Pending actions live in memory. After a restart, Resume rebuilds them from
// each unfinished order's creation time.
package lifecycle
