// Package gemini implements the generation service client: synchronous
// streaming image generation and text embeddings through the Gemini SDK,
// and the asynchronous batch path (submit, status poll, result fetch)
// over the service's REST endpoint.
//
// Batch responses embed base64 image payloads that can run to hundreds
// of megabytes while only the leading few kilobytes carry status
// fields, so status polling scans a bounded response prefix and result
// fetching enforces a hard size ceiling.
package gemini
