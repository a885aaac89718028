package service

import (
	"time"

	"github.com/zzenonn/gluepart/internal/config"
	"github.com/zzenonn/gluepart/internal/partition"
)

// Options is the explicit configuration the entry points run with.
type Options struct {
	Table          TableRef
	PrefixSegments int
	PartitionKeys  []string
	BatchSize      int
	Concurrency    int
	CallTimeout    time.Duration
	Quiet          bool
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 || o.BatchSize > partition.MaxBatchSize {
		return partition.MaxBatchSize
	}
	return o.BatchSize
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return 1
	}
	return o.Concurrency
}

func (o Options) decomposer(scheme string) partition.Decomposer {
	return partition.Decomposer{
		Scheme:         scheme,
		PrefixSegments: o.PrefixSegments,
		PartitionKeys:  o.PartitionKeys,
	}
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, quiet bool) Options {
	return Options{
		Table: TableRef{
			CatalogID: cfg.CatalogID,
			Database:  cfg.Database,
			Table:     cfg.Table,
		},
		PrefixSegments: cfg.PrefixSegments,
		PartitionKeys:  cfg.PartitionKeys,
		BatchSize:      cfg.BatchSize,
		Concurrency:    cfg.Concurrency,
		CallTimeout:    cfg.CallTimeout,
		Quiet:          quiet,
	}
}
