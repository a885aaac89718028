package service_test

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
	"github.com/zzenonn/gluepart/internal/service"
)

func s3Event(bucket string, keys ...string) events.S3Event {
	var event events.S3Event
	for _, k := range keys {
		event.Records = append(event.Records, events.S3EventRecord{
			EventSource: "aws:s3",
			EventName:   "ObjectCreated:Put",
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: bucket},
				Object: events.S3Object{Key: k, Size: 10},
			},
		})
	}
	return event
}

func eventOptions() service.Options {
	return service.Options{Table: table, PrefixSegments: 1}
}

func TestEventService_HandleEvent(t *testing.T) {
	catalog := newMockCatalog("year", "month", "day")
	s := service.NewEventService(catalog, eventOptions())

	err := s.HandleEvent(context.Background(), s3Event("bucket", "raw/2023/05/17/part-00.json"))
	require.NoError(t, err)

	got, ok := catalog.partitions[valuesKey([]string{"2023", "05", "17"})]
	require.True(t, ok)
	assert.Equal(t, "s3://bucket/raw/2023/05/17/", aws.ToString(got.StorageDescriptor.Location))

	// duplicate delivery of the same event succeeds
	err = s.HandleEvent(context.Background(), s3Event("bucket", "raw/2023/05/17/part-00.json"))
	assert.NoError(t, err)
	assert.Len(t, catalog.partitions, 1)
}

func TestEventService_HandleEventAllRecords(t *testing.T) {
	catalog := newMockCatalog()
	s := service.NewEventService(catalog, eventOptions())

	err := s.HandleEvent(context.Background(), s3Event("bucket",
		"raw/2023/05/17/part-00.json",
		"raw/2023/05/17/part-01.json",
		"raw/2023/05/18/part-00.json",
	))
	require.NoError(t, err)

	assert.Len(t, catalog.partitions, 2)
	assert.Equal(t, 1, catalog.getTableCalls)
}

func TestEventService_URLEncodedKey(t *testing.T) {
	catalog := newMockCatalog()
	s := service.NewEventService(catalog, eventOptions())

	err := s.HandleEvent(context.Background(), s3Event("bucket", "raw/region%3Deu+west/2023/part+00.json"))
	require.NoError(t, err)

	got, ok := catalog.partitions[valuesKey([]string{"eu west", "2023"})]
	require.True(t, ok)
	assert.Equal(t, "s3://bucket/raw/region=eu west/2023/", aws.ToString(got.StorageDescriptor.Location))
}

func TestEventService_Failures(t *testing.T) {
	t.Run("malformed key", func(t *testing.T) {
		catalog := newMockCatalog()
		s := service.NewEventService(catalog, eventOptions())

		err := s.HandleEvent(context.Background(), s3Event("bucket", "raw/part-00.json"))
		assert.ErrorIs(t, err, zerrors.ErrMalformedKey)
		assert.Empty(t, catalog.partitions)
	})

	t.Run("registration error", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.createErr = &types.ResourceNumberLimitExceededException{Message: aws.String("too many partitions")}
		s := service.NewEventService(catalog, eventOptions())

		err := s.HandleEvent(context.Background(), s3Event("bucket", "raw/2023/part-00.json"))
		var regErr *zerrors.RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "ResourceNumberLimitExceededException", regErr.Code)
	})

	t.Run("one bad record does not stop the others", func(t *testing.T) {
		catalog := newMockCatalog()
		s := service.NewEventService(catalog, eventOptions())

		err := s.HandleEvent(context.Background(), s3Event("bucket", "bad.json", "raw/2023/part-00.json"))
		assert.ErrorIs(t, err, zerrors.ErrMalformedKey)
		assert.Len(t, catalog.partitions, 1)
	})
}

func TestEventService_EmptyEvent(t *testing.T) {
	catalog := newMockCatalog()
	s := service.NewEventService(catalog, eventOptions())

	assert.NoError(t, s.HandleEvent(context.Background(), events.S3Event{}))
	assert.Equal(t, 0, catalog.getTableCalls)
}

func TestEventService_RegisterObject(t *testing.T) {
	catalog := newMockCatalog()
	s := service.NewEventService(catalog, eventOptions())

	c, outcome, err := s.RegisterObject(context.Background(), "bucket", "raw/2023/05/a.json")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, outcome)
	assert.Equal(t, "s3://bucket/raw/2023/05/", c.Location)

	_, outcome, err = s.RegisterObject(context.Background(), "bucket", "raw/2023/05/b.json")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyExists, outcome)
}

func TestEventService_SkipsMetadataKeys(t *testing.T) {
	for _, keys := range [][]string{nil, {"year", "month"}} {
		catalog := newMockCatalog(keys...)
		s := service.NewEventService(catalog, eventOptions())

		err := s.HandleEvent(context.Background(), s3Event("bucket",
			"raw/.hoodie/20230517.commit",
			"raw/2023/_SUCCESS",
			"raw/_temporary/0/part-00.json",
		))
		require.NoError(t, err)
		assert.Empty(t, catalog.partitions)
	}

	catalog := newMockCatalog()
	s := service.NewEventService(catalog, eventOptions())
	_, outcome, err := s.RegisterObject(context.Background(), "bucket", "raw/.hoodie/x.commit")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)
}
