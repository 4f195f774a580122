// Package events provides the progress event stream for generation
// jobs. Producers (the scheduler, pollers) publish JobProgress values
// to a Broker; consumers subscribe and receive them over channels,
// decoupling generation calls from any UI or transport concern.
package events
