// Package domain contains the core entities of the generation pipeline:
// items, generation attempts, batch jobs and vectorize jobs, together
// with their status enums and validation rules. It has no dependencies
// on storage or transport concerns.
package domain
