// Package dedupe detects near-duplicate catalog items by comparing
// text embeddings of their titles and descriptions. Embeddings are
// computed lazily and cached on the item; similarity uses cosine
// distance with single-linkage grouping over a configurable threshold.
package dedupe
