package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Record is one row of the synthetic dataset.
type Record struct {
	ID    int    `json:"id"`
	SK    int    `json:"sk"`
	Txt   string `json:"txt"`
	Year  string `json:"year"`
	Month int    `json:"month"`
}

// ObjectWriter stores generated files.
type ObjectWriter interface {
	Upload(ctx context.Context, key string, r io.Reader, quiet bool) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// DatasetOptions controls a Generate call.
type DatasetOptions struct {
	Prefix    string
	Start     int
	Count     int
	Increment int
	Seed      uint64
	HiveStyle bool
	Overwrite bool
	Quiet     bool
}

// DatasetService writes a synthetic dataset partitioned by year and month.
type DatasetService struct {
	objects ObjectWriter
}

// NewDatasetService creates a new DatasetService instance
func NewDatasetService(objects ObjectWriter) *DatasetService {
	return &DatasetService{objects: objects}
}

// GenerateRecords builds count records with ids starting at start.
func GenerateRecords(start, count, increment int, rng *rand.Rand) []Record {
	records := make([]Record, count)
	for i := range records {
		id := start + i
		records[i] = Record{
			ID:    id,
			SK:    id + increment,
			Txt:   string(rune('A' + id%26)),
			Year:  "2019",
			Month: rng.IntN(12) + 1,
		}
	}
	return records
}

// PartitionPath returns the directory a record is written under.
func (r Record) PartitionPath(hiveStyle bool) string {
	month := strconv.Itoa(r.Month)
	if hiveStyle {
		return "year=" + r.Year + "/month=" + month
	}
	return r.Year + "/" + month
}

// Generate writes one JSON-lines file per partition under opts.Prefix and
// returns the written keys in sorted order.
func (s *DatasetService) Generate(ctx context.Context, opts DatasetOptions) ([]string, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("record count must be positive, got %d", opts.Count)
	}

	if opts.Overwrite {
		if opts.Prefix == "" {
			return nil, fmt.Errorf("refusing to overwrite without a prefix")
		}
		log.Infof("Deleting existing objects under %s", opts.Prefix)
		if err := s.objects.DeletePrefix(ctx, opts.Prefix+"/"); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", opts.Prefix, err)
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	groups := make(map[string][]Record)
	for _, rec := range GenerateRecords(opts.Start, opts.Count, opts.Increment, rng) {
		p := rec.PartitionPath(opts.HiveStyle)
		groups[p] = append(groups[p], rec)
	}

	partitions := make([]string, 0, len(groups))
	for p := range groups {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	keys := make([]string, 0, len(partitions))
	for _, p := range partitions {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, rec := range groups[p] {
			if err := enc.Encode(rec); err != nil {
				return keys, fmt.Errorf("failed to encode record %d: %w", rec.ID, err)
			}
		}

		key := path.Join(opts.Prefix, p, fmt.Sprintf("part-%05d.json", opts.Start))
		if _, err := s.objects.Upload(ctx, key, bytes.NewReader(buf.Bytes()), opts.Quiet); err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		log.Debugf("Wrote %d records to %s", len(groups[p]), key)
		keys = append(keys, key)
	}

	log.Infof("Generated %d records in %d partitions under %s", opts.Count, len(keys), opts.Prefix)
	return keys, nil
}
