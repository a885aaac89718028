package objectstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/gluepart/internal/domain"
)

type S3Store struct {
	Client   *s3.Client
	Uploader *manager.Uploader
}

func NewS3ObjectStore(awsConfig aws.Config) *S3Store {
	client := s3.NewFromConfig(awsConfig)
	if client == nil {
		log.Fatal("Failed to create S3 client")
	}

	return &S3Store{
		Client:   client,
		Uploader: manager.NewUploader(client),
	}
}

// NewS3ObjectRepository creates a new S3 object repository
func NewS3ObjectRepository(client S3API, uploader Uploader, bucketName string) S3ObjectRepository {
	return S3ObjectRepository{
		client:     client,
		uploader:   uploader,
		bucketName: bucketName,
	}
}

// NewGCSObjectRepository creates a new GCS object repository
func NewGCSObjectRepository(client *storage.Client, bucketName string) GCSObjectRepository {
	return GCSObjectRepository{
		client:     client,
		bucketName: bucketName,
	}
}

// deleteAll deletes every listed object, continuing past failures. The
// returned error aggregates every failed delete.
func deleteAll(ctx context.Context, objects []domain.ObjectInfo, del func(context.Context, string) error) error {
	var result *multierror.Error
	for _, obj := range objects {
		if err := del(ctx, obj.Key); err != nil {
			log.Warnf("Failed to delete object %s: %v", obj.Key, err)
			result = multierror.Append(result, fmt.Errorf("delete %s: %w", obj.Key, err))
		}
	}
	return result.ErrorOrNil()
}
