package partition

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
)

func candidates(n int) []domain.PartitionCandidate {
	out := make([]domain.PartitionCandidate, n)
	for i := range out {
		v := fmt.Sprintf("%04d", i)
		out[i] = domain.PartitionCandidate{Values: []string{v}, Location: "s3://b/raw/" + v + "/"}
	}
	return out
}

func TestBatch_ChunkSizes(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{"250 by 100", 250, 100, []int{100, 100, 50}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"smaller than size", 3, 100, []int{3}},
		{"empty", 0, 100, []int{}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Batch(candidates(tt.n), tt.size)
			require.NoError(t, err)

			got := make([]int, 0, len(chunks))
			for _, c := range chunks {
				got = append(got, len(c))
			}
			assert.Equal(t, tt.sizes, got)
		})
	}
}

func TestBatch_FlattenIsPermutationOfDeduped(t *testing.T) {
	in := candidates(137)
	// every candidate seen twice, as when several files share a partition
	in = append(in, candidates(137)...)

	chunks, err := Batch(in, 25)
	require.NoError(t, err)

	var flat []string
	for i, c := range chunks {
		if i < len(chunks)-1 {
			assert.Len(t, c, 25)
		}
		for _, cand := range c {
			flat = append(flat, cand.Key())
		}
	}

	var want []string
	for _, c := range candidates(137) {
		want = append(want, c.Key())
	}
	sort.Strings(flat)
	sort.Strings(want)
	assert.Equal(t, want, flat)
}

func TestBatch_InconsistentLocation(t *testing.T) {
	in := []domain.PartitionCandidate{
		{Values: []string{"2023", "05"}, Location: "s3://b/raw/2023/05/"},
		{Values: []string{"2023", "05"}, Location: "s3://b/other/2023/05/"},
	}

	_, err := Batch(in, 100)
	assert.ErrorIs(t, err, zerrors.ErrInconsistentLocation)
}

func TestBatch_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Batch(candidates(1), size)
		assert.ErrorIs(t, err, zerrors.ErrInvalidBatchSize)
	}
}

func TestDedupe_KeepsFirstSeenOrder(t *testing.T) {
	in := []domain.PartitionCandidate{
		{Values: []string{"b"}, Location: "s3://x/p/b/"},
		{Values: []string{"a"}, Location: "s3://x/p/a/"},
		{Values: []string{"b"}, Location: "s3://x/p/b/"},
	}

	out, err := Dedupe(in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"b"}, out[0].Values)
	assert.Equal(t, []string{"a"}, out[1].Values)
}
