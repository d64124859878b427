// Package scheduler runs the recurring tick loop over a task priority queue.
//
// Each tick pops the highest-priority task, hands its job to a Validator and
// acts on the returned Policy:
//   - PolicyRetry: the task goes back into the queue (back of its tier)
//   - PolicyDrop: the task is discarded
//
// Ticks are anchored to a fixed schedule (nextCall advances by the interval
// on every Start and every fired tick), and the loop arms the next deadline
// before running the current tick. Stop is destructive: it flushes the queue.
package scheduler
