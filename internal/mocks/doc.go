// Package mocks provides in-memory store implementations for tests.
// Each mock is safe for concurrent use and offers Fn fields to
// override individual operations when a test needs to inject errors.
package mocks
