// Package harness provides scenario testing for the capture relay.
//
// A scenario drives an in-process relay (listeners, bridge, durable queue
// over a fresh in-memory SQLite store, binding registry) with a sequence of
// captured signals and consumer changes, then asserts on what the consumer
// received and what is left in the queue.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: unbound_then_bound
//	description: "Events queue until the consumer binds"
//	steps:
//	  - sms: { sender: "+15550001", body: "Debited 500", timestamp_millis: 42 }
//	  - bind: all
//	  - notification: { source_app_id: com.bank, title: Bank, text: "Debited 500" }
//	  - advance: 1s
//	  - consumer_fails: true
//	  - drain: true
//	assertions:
//	  - type: forwarded_contains
//	    method: onNotificationReceived
//	    args: { title: Bank }
//	  - type: queued
//	    records: ["SMS|Debited 500|+15550001|1700000000000"]
//
// # Assertion Types
//
//   - forwarded_contains: a forwarded call with the method and matching args
//   - forwarded_count: the number of calls forwarded with a method
//   - queued: the exact pending records at the end of the scenario
//   - drained: the records returned by the drain steps, in order
//
// # Deterministic Testing
//
// The enqueue clock starts at StartMillis and only moves on advance steps,
// so traces are identical across runs and can be compared against golden
// files with RunWithGolden.
package harness
