// Package queue schedules live generation jobs. A Scheduler bounds the
// number of concurrently in-flight generation calls, prefers edit jobs
// over plain generations, and drives each item through the generation
// client to a persisted attempt and a terminal status.
package queue
