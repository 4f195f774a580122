// Package poller reconciles asynchronous external jobs with the item
// store. BatchPoller drives bulk generation jobs to terminal states and
// fans results back onto items; VectorizePoller does the same for
// vector tracing jobs. Both run on fixed intervals with an immediate
// startup pass and a single-flight guard.
package poller
