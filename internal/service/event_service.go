package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
	"github.com/zzenonn/gluepart/internal/partition"
)

// EventService registers the partition of each object named in a storage
// write notification. It keeps no state between invocations.
type EventService struct {
	catalog CatalogAPI
	opts    Options
}

// NewEventService creates a new EventService instance
func NewEventService(catalog CatalogAPI, opts Options) *EventService {
	return &EventService{
		catalog: catalog,
		opts:    opts,
	}
}

// HandleEvent registers a partition for every record of the notification. The
// table descriptor is fetched once per invocation. Any failure is returned so
// the invoking runtime can redeliver the event.
func (s *EventService) HandleEvent(ctx context.Context, event events.S3Event) error {
	if len(event.Records) == 0 {
		log.Warn("Received storage event without records")
		return nil
	}

	registrar := NewRegistrar(s.catalog, s.opts.Table, s.opts.CallTimeout)

	var result *multierror.Error
	for i, record := range event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			err = zerrors.MalformedKeyError(record.S3.Object.Key, err.Error())
			result = multierror.Append(result, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		if _, _, err := s.register(ctx, registrar, record.S3.Bucket.Name, key); err != nil {
			log.WithFields(log.Fields{
				"bucket": record.S3.Bucket.Name,
				"key":    key,
			}).Errorf("Partition registration failed: %v", err)
			result = multierror.Append(result, fmt.Errorf("record %d: %w", i, err))
		}
	}

	return result.ErrorOrNil()
}

// RegisterObject registers the partition holding a single object.
func (s *EventService) RegisterObject(ctx context.Context, bucket, key string) (domain.PartitionCandidate, domain.Outcome, error) {
	registrar := NewRegistrar(s.catalog, s.opts.Table, s.opts.CallTimeout)
	return s.register(ctx, registrar, bucket, key)
}

func (s *EventService) register(ctx context.Context, registrar *Registrar, bucket, key string) (domain.PartitionCandidate, domain.Outcome, error) {
	if !partition.IsDataKey(key, s.opts.PrefixSegments) {
		log.Debugf("Skipping s3://%s/%s, not a data object", bucket, key)
		return domain.PartitionCandidate{}, domain.OutcomeSkipped, nil
	}

	log.Debugf("Registering partition for s3://%s/%s", bucket, key)

	candidate, err := s.opts.decomposer("s3").Decompose(bucket, key)
	if err != nil {
		return domain.PartitionCandidate{}, 0, err
	}

	outcome, err := registrar.RegisterOne(ctx, candidate)
	return candidate, outcome, err
}
