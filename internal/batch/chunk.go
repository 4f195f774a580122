package batch

import "github.com/google/uuid"

// chunkIDs splits ids into consecutive chunks of at most size elements.
// The union of the chunks is exactly the input, in order, with no
// duplicates introduced. A size below 1 yields a single chunk.
func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	if size < 1 {
		return [][]uuid.UUID{ids}
	}

	chunks := make([][]uuid.UUID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
