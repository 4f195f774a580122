// Package api provides the HTTP handlers for the control surface:
// enqueueing generation jobs, submitting and polling batches, duplicate
// inspection, and vectorization.
package api
