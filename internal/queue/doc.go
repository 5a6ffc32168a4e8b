// Package queue holds in-memory job state and drives concurrent execution.
//
// The Store owns the canonical Job records and synchronizes every lifecycle
// transition. The FIFO hands each submitted job to exactly one worker. The
// Pool runs a fixed number of workers that resolve operations through the
// Registry, execute them, and relay progress from the handler's sink into the
// store. Stats counters are maintained at transition time rather than by
// scanning.
//
// Job state is process-lifetime only. The optional Recorder hook mirrors
// transitions into external storage for observability, but nothing in this
// package ever reads state back to resume work.
package queue
