package partition

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zerrors "github.com/zzenonn/gluepart/internal/errors"
)

func TestDecompose(t *testing.T) {
	tests := []struct {
		name           string
		key            string
		prefixSegments int
		wantValues     []string
		wantLocation   string
	}{
		{
			name:           "date partitions",
			key:            "raw/2023/05/17/part-00.json",
			prefixSegments: 1,
			wantValues:     []string{"2023", "05", "17"},
			wantLocation:   "s3://bucket/raw/2023/05/17/",
		},
		{
			name:           "single partition segment",
			key:            "raw/2023/a.json",
			prefixSegments: 1,
			wantValues:     []string{"2023"},
			wantLocation:   "s3://bucket/raw/2023/",
		},
		{
			name:           "two prefix segments",
			key:            "lake/events/2023/05/a.json",
			prefixSegments: 2,
			wantValues:     []string{"2023", "05"},
			wantLocation:   "s3://bucket/lake/events/2023/05/",
		},
		{
			name:           "no prefix",
			key:            "2023/05/a.json",
			prefixSegments: 0,
			wantValues:     []string{"2023", "05"},
			wantLocation:   "s3://bucket/2023/05/",
		},
		{
			name:           "hive style segments",
			key:            "table/year=2019/month=7/part-0001.parquet",
			prefixSegments: 1,
			wantValues:     []string{"2019", "7"},
			wantLocation:   "s3://bucket/table/year=2019/month=7/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decompose("bucket", tt.key, tt.prefixSegments)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValues, got.Values)
			assert.Equal(t, tt.wantLocation, got.Location)
		})
	}
}

func TestDecompose_ValuesAreSegmentsBetweenPrefixAndFilename(t *testing.T) {
	for n := 1; n <= 6; n++ {
		segments := []string{"raw"}
		for i := 0; i < n; i++ {
			segments = append(segments, strings.Repeat("v", i+1))
		}
		key := strings.Join(append(segments, "file.json"), "/")

		got, err := Decompose("b", key, 1)
		if err != nil {
			t.Fatalf("Decompose(%q) failed: %v", key, err)
		}
		if strings.Join(got.Values, "/") != strings.Join(segments[1:], "/") {
			t.Errorf("Decompose(%q) values = %v, want %v", key, got.Values, segments[1:])
		}
		if !strings.HasSuffix(got.Location, "/") {
			t.Errorf("location %q must end with a slash", got.Location)
		}
	}
}

func TestDecompose_MalformedKey(t *testing.T) {
	tests := []struct {
		name           string
		key            string
		prefixSegments int
	}{
		{"prefix and filename only", "raw/a.json", 1},
		{"filename only", "a.json", 1},
		{"empty key", "", 0},
		{"too few for two prefix segments", "lake/events/a.json", 2},
		{"empty partition segment", "raw//05/a.json", 1},
		{"empty prefix segment", "/2023/05/a.json", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompose("bucket", tt.key, tt.prefixSegments)
			if !errors.Is(err, zerrors.ErrMalformedKey) {
				t.Errorf("Decompose(%q) error = %v, want ErrMalformedKey", tt.key, err)
			}
		})
	}
}

func TestDecomposer_PartitionKeys(t *testing.T) {
	d := Decomposer{Scheme: "gs", PrefixSegments: 1, PartitionKeys: []string{"year", "month"}}

	got, err := d.Decompose("bucket", "table/year=2019/month=12/part.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"2019", "12"}, got.Values)
	assert.Equal(t, "gs://bucket/table/year=2019/month=12/", got.Location)

	_, err = d.Decompose("bucket", "table/year=2019/part.json")
	assert.ErrorIs(t, err, zerrors.ErrMalformedKey)

	_, err = d.Decompose("bucket", "table/month=12/year=2019/part.json")
	assert.ErrorIs(t, err, zerrors.ErrMalformedKey)

	_, err = d.Decompose("bucket", "table/year=/month=12/part.json")
	assert.ErrorIs(t, err, zerrors.ErrMalformedKey)
}

func TestIsDataKey(t *testing.T) {
	tests := []struct {
		key            string
		prefixSegments int
		want           bool
	}{
		{"raw/2023/05/part-00.json", 1, true},
		{"raw/.hoodie/20230517.commit", 1, false},
		{"raw/2023/_SUCCESS", 1, false},
		{"raw/_temporary/0/part-00.json", 1, false},
		{"_staging/2023/part-00.json", 1, true},
		{".lake/2023/part-00.json", 1, true},
		{"a", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDataKey(tt.key, tt.prefixSegments))
		})
	}
}
