package objectstore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/gluepart/internal/domain"
)

// S3API is the subset of the S3 client used by S3ObjectRepository.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

var (
	_ S3API    = (*s3.Client)(nil)
	_ Uploader = (*manager.Uploader)(nil)
)

// S3ObjectRepository manages S3 interactions for objects.
type S3ObjectRepository struct {
	client     S3API
	uploader   Uploader
	bucketName string
}

// GetBucketName returns the bucket name.
func (r *S3ObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the object store type.
func (r *S3ObjectRepository) GetStorageType() string {
	return string(S3Type)
}

// Upload uploads an object to S3 using the multipart upload manager
func (r *S3ObjectRepository) Upload(ctx context.Context, key string, reader io.Reader, quiet bool) (string, error) {
	size := readerSize(reader)

	var proxyReader io.Reader = reader
	if !quiet {
		bar := progressbar.DefaultBytes(size, "uploading "+key)
		pbReader := progressbar.NewReader(reader, bar)
		proxyReader = &pbReader
	}

	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
		Body:   proxyReader,
	})
	if err != nil {
		return "", err
	}
	return r.bucketName + "/" + key, nil
}

// List returns every object under prefix, following continuation tokens until
// the listing is exhausted.
func (r *S3ObjectRepository) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucketName),
		Prefix: aws.String(prefix),
	})

	var objects []domain.ObjectInfo
	for page := 1; paginator.HasMorePages(); page++ {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		log.Debugf("Listed page %d of s3://%s/%s: %d objects", page, r.bucketName, prefix, len(out.Contents))

		for _, obj := range out.Contents {
			objects = append(objects, domain.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	return objects, nil
}

// Delete removes an object from S3
func (r *S3ObjectRepository) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	return err
}

// DeletePrefix removes all objects with the given prefix from S3
func (r *S3ObjectRepository) DeletePrefix(ctx context.Context, prefix string) error {
	objects, err := r.List(ctx, prefix)
	if err != nil {
		return err
	}

	if err := deleteAll(ctx, objects, r.Delete); err != nil {
		return err
	}

	log.Debugf("Deleted %d objects under s3://%s/%s", len(objects), r.bucketName, prefix)
	return nil
}

// readerSize determines the remaining size of seekable readers, -1 otherwise
func readerSize(reader io.Reader) int64 {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return -1
	}
	if current, err := seeker.Seek(0, io.SeekCurrent); err == nil {
		if end, err := seeker.Seek(0, io.SeekEnd); err == nil {
			seeker.Seek(current, io.SeekStart)
			return end - current
		}
	}
	return -1
}
