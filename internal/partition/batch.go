package partition

import (
	"fmt"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
)

// MaxBatchSize is the most partitions a single catalog batch call accepts.
const MaxBatchSize = 100

// Dedupe collapses candidates with equal values, keeping first-seen order.
// Equal values must always come with the same location.
func Dedupe(candidates []domain.PartitionCandidate) ([]domain.PartitionCandidate, error) {
	seen := make(map[string]string, len(candidates))
	out := make([]domain.PartitionCandidate, 0, len(candidates))

	for _, c := range candidates {
		k := c.Key()
		if loc, ok := seen[k]; ok {
			if loc != c.Location {
				return nil, fmt.Errorf("%w: values %v at %s and %s", zerrors.ErrInconsistentLocation, c.Values, loc, c.Location)
			}
			continue
		}
		seen[k] = c.Location
		out = append(out, c)
	}

	return out, nil
}

// Batch dedupes candidates and splits them into chunks of size elements.
// The last chunk may be shorter.
func Batch(candidates []domain.PartitionCandidate, size int) ([][]domain.PartitionCandidate, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", zerrors.ErrInvalidBatchSize, size)
	}

	unique, err := Dedupe(candidates)
	if err != nil {
		return nil, err
	}

	chunks := make([][]domain.PartitionCandidate, 0, (len(unique)+size-1)/size)
	for start := 0; start < len(unique); start += size {
		end := min(start+size, len(unique))
		chunks = append(chunks, unique[start:end])
	}

	return chunks, nil
}
