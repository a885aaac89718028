// Package partition derives catalog partitions from object keys and groups them
// into registration batches. Nothing here performs I/O.
package partition

import (
	"fmt"
	"strings"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
)

// DefaultScheme is used for locations when no scheme is configured.
const DefaultScheme = "s3"

// Decomposer turns object keys of the form prefix/.../value_1/.../value_N/filename
// into partition candidates.
type Decomposer struct {
	// Scheme of the generated location URIs, "s3" or "gs".
	Scheme string
	// PrefixSegments is the number of leading segments that are not partition values.
	PrefixSegments int
	// PartitionKeys, when set, fixes the number of partition segments and the
	// names accepted in hive-style "name=value" segments.
	PartitionKeys []string
}

// Decompose derives a candidate from key using the s3 scheme.
func Decompose(bucket, key string, prefixSegments int) (domain.PartitionCandidate, error) {
	return Decomposer{PrefixSegments: prefixSegments}.Decompose(bucket, key)
}

// Decompose splits key on "/", drops the prefix segments and the filename and
// returns the remaining segments as partition values.
func (d Decomposer) Decompose(bucket, key string) (domain.PartitionCandidate, error) {
	segments := strings.Split(key, "/")
	if len(segments) < d.PrefixSegments+2 {
		return domain.PartitionCandidate{}, zerrors.MalformedKeyError(key,
			fmt.Sprintf("need at least %d segments, got %d", d.PrefixSegments+2, len(segments)))
	}

	prefix := segments[:d.PrefixSegments]
	raw := segments[d.PrefixSegments : len(segments)-1]

	for _, s := range prefix {
		if s == "" {
			return domain.PartitionCandidate{}, zerrors.MalformedKeyError(key, "empty prefix segment")
		}
	}

	if len(d.PartitionKeys) > 0 && len(raw) != len(d.PartitionKeys) {
		return domain.PartitionCandidate{}, zerrors.MalformedKeyError(key,
			fmt.Sprintf("expected %d partition segments, got %d", len(d.PartitionKeys), len(raw)))
	}

	values := make([]string, len(raw))
	for i, s := range raw {
		v, err := d.value(i, s)
		if err != nil {
			return domain.PartitionCandidate{}, zerrors.MalformedKeyError(key, err.Error())
		}
		values[i] = v
	}

	return domain.PartitionCandidate{
		Values:   values,
		Location: d.location(bucket, prefix, raw),
	}, nil
}

// value unwraps hive-style "name=value" segments
func (d Decomposer) value(i int, segment string) (string, error) {
	if segment == "" {
		return "", fmt.Errorf("empty partition segment at position %d", i)
	}

	name, v, hive := strings.Cut(segment, "=")
	if !hive {
		return segment, nil
	}
	if len(d.PartitionKeys) > 0 && !strings.EqualFold(name, d.PartitionKeys[i]) {
		return "", fmt.Errorf("segment %q does not match partition key %q", segment, d.PartitionKeys[i])
	}
	if v == "" {
		return "", fmt.Errorf("empty value for partition key %q", name)
	}
	return v, nil
}

func (d Decomposer) location(bucket string, prefix, raw []string) string {
	scheme := d.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}

	parts := make([]string, 0, 1+len(prefix)+len(raw))
	parts = append(parts, bucket)
	parts = append(parts, prefix...)
	parts = append(parts, raw...)
	return scheme + "://" + strings.Join(parts, "/") + "/"
}

// IsDataKey reports whether key can hold partition data. Keys with a segment
// past the prefix that starts with "_" or "." (_SUCCESS markers, _temporary/
// staging, a table format's .hoodie/ metadata) are not.
func IsDataKey(key string, prefixSegments int) bool {
	segments := strings.Split(key, "/")
	if prefixSegments > len(segments) {
		return true
	}
	for _, segment := range segments[prefixSegments:] {
		if strings.HasPrefix(segment, "_") || strings.HasPrefix(segment, ".") {
			return false
		}
	}
	return true
}
