package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
	"github.com/zzenonn/gluepart/internal/partition"
	"github.com/zzenonn/gluepart/internal/repository/objectstore"
)

// ObjectLister lists the objects a batch run derives partitions from.
type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
	GetBucketName() string
	GetStorageType() string
}

// ReportRepository persists run reports.
type ReportRepository interface {
	SaveRunReport(ctx context.Context, report domain.RunReport) error
}

// BatchService registers the partitions of every object under a prefix.
type BatchService struct {
	catalog CatalogAPI
	objects ObjectLister
	reports ReportRepository
	opts    Options
}

// NewBatchService creates a new BatchService. reports may be nil.
func NewBatchService(catalog CatalogAPI, objects ObjectLister, reports ReportRepository, opts Options) *BatchService {
	return &BatchService{
		catalog: catalog,
		objects: objects,
		reports: reports,
		opts:    opts,
	}
}

// Run lists prefix, derives one candidate per partition and registers them in
// chunks. A listing failure aborts the run before anything is registered. The
// returned report covers every chunk; the error aggregates chunk failures.
func (s *BatchService) Run(ctx context.Context, prefix string) (domain.RunReport, error) {
	bucket := s.objects.GetBucketName()
	scheme := objectstore.URIScheme(s.objects.GetStorageType())

	report := domain.RunReport{
		RunID:     uuid.NewString(),
		Database:  s.opts.Table.Database,
		Table:     s.opts.Table.Table,
		Location:  scheme + "://" + bucket + "/" + prefix,
		StartedAt: time.Now().UTC(),
	}
	logger := log.WithFields(log.Fields{"run_id": report.RunID, "table": s.opts.Table.String()})

	objects, err := s.objects.List(ctx, prefix)
	if err != nil {
		return report, &zerrors.ListingError{Bucket: bucket, Prefix: prefix, Err: err}
	}
	report.Objects = len(objects)

	var result *multierror.Error
	decomposer := s.opts.decomposer(scheme)
	candidates := make([]domain.PartitionCandidate, 0, len(objects))
	for _, obj := range objects {
		if obj.Size == 0 || !partition.IsDataKey(obj.Key, s.opts.PrefixSegments) {
			continue
		}
		c, err := decomposer.Decompose(bucket, obj.Key)
		if err != nil {
			logger.Warnf("Skipping object: %v", err)
			report.Malformed = append(report.Malformed, obj.Key)
			result = multierror.Append(result, err)
			continue
		}
		candidates = append(candidates, c)
	}

	chunks, err := partition.Batch(candidates, s.opts.batchSize())
	if err != nil {
		return report, err
	}
	for _, chunk := range chunks {
		report.Candidates += len(chunk)
	}
	logger.Infof("Found %d partitions in %d objects under %s", report.Candidates, len(objects), report.Location)

	if len(chunks) > 0 {
		registrar := NewRegistrar(s.catalog, s.opts.Table, s.opts.CallTimeout)
		if err := registrar.Prepare(ctx); err != nil {
			return report, err
		}
		report.Chunks = s.registerChunks(ctx, registrar, chunks, report.Candidates)
	}

	report.FinishedAt = time.Now().UTC()
	for _, c := range report.Chunks {
		if c.Failed > 0 {
			result = multierror.Append(result, fmt.Errorf("chunk %d: %d of %d partitions failed: %s",
				c.Index, c.Failed, c.Size, strings.Join(c.Errors, "; ")))
		}
	}

	if s.reports != nil {
		if err := s.reports.SaveRunReport(ctx, report); err != nil {
			logger.Errorf("Failed to save run report: %v", err)
			result = multierror.Append(result, err)
		}
	}

	logger.Infof("Registered %d partitions in %d chunks, %d failed", report.Candidates, len(report.Chunks), report.Failed())
	return report, result.ErrorOrNil()
}

// registerChunks registers disjoint chunks concurrently; one failing chunk does
// not stop the others.
func (s *BatchService) registerChunks(ctx context.Context, registrar *Registrar, chunks [][]domain.PartitionCandidate, total int) []domain.ChunkReport {
	reports := make([]domain.ChunkReport, len(chunks))

	var bar *progressbar.ProgressBar
	if !s.opts.Quiet {
		bar = progressbar.Default(int64(total), "registering")
	}

	var g errgroup.Group
	g.SetLimit(s.opts.concurrency())

	for i, chunk := range chunks {
		g.Go(func() error {
			results := registrar.RegisterBatch(ctx, chunk)
			reports[i] = summarize(i, results)

			if bar != nil {
				bar.Add(len(chunk))
			}
			return nil
		})
	}
	g.Wait()

	return reports
}

func summarize(index int, results []domain.Result) domain.ChunkReport {
	report := domain.ChunkReport{Index: index, Size: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			report.Failed++
			report.Errors = append(report.Errors, describe(r))
		case r.Outcome == domain.OutcomeAlreadyExists:
			report.AlreadyExists++
		default:
			report.Created++
		}
	}
	return report
}

func describe(r domain.Result) string {
	var regErr *zerrors.RegistrationError
	if errors.As(r.Err, &regErr) {
		return fmt.Sprintf("%v: %s", r.Candidate.Values, regErr.Code)
	}
	return fmt.Sprintf("%v: %v", r.Candidate.Values, r.Err)
}
