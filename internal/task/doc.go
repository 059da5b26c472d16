// Package task runs units of work on a fixed-size pool of workers.
//
// Work is enqueued on a TaskQueue, the queue is closed, and a WorkerPool
// drains it: every worker takes one task at a time and runs it to
// completion before taking the next. Task failures are reported to the
// pool's handlers and never stop the other workers.
package task
