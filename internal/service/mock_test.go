package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/zzenonn/gluepart/internal/domain"
)

// mockCatalog is an in-memory Glue table that enforces unique partition values.
type mockCatalog struct {
	mu sync.Mutex

	table       *types.Table
	getTableErr error
	createErr   error
	batchErr    error
	itemErrs    map[string]string

	getTableCalls int
	batchCalls    int
	batchSizes    []int
	partitions    map[string]types.PartitionInput
}

func newMockCatalog(keys ...string) *mockCatalog {
	cols := make([]types.Column, len(keys))
	for i, k := range keys {
		cols[i] = types.Column{Name: aws.String(k), Type: aws.String("string")}
	}
	return &mockCatalog{
		table: &types.Table{
			Name:          aws.String("events"),
			PartitionKeys: cols,
			StorageDescriptor: &types.StorageDescriptor{
				Location:     aws.String("s3://bucket/raw/"),
				InputFormat:  aws.String("org.apache.hadoop.mapred.TextInputFormat"),
				OutputFormat: aws.String("org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat"),
				SerdeInfo: &types.SerDeInfo{
					SerializationLibrary: aws.String("org.openx.data.jsonserde.JsonSerDe"),
				},
			},
		},
		itemErrs:   map[string]string{},
		partitions: map[string]types.PartitionInput{},
	}
}

func valuesKey(values []string) string {
	return domain.PartitionCandidate{Values: values}.Key()
}

func (m *mockCatalog) GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getTableCalls++
	if m.getTableErr != nil {
		return nil, m.getTableErr
	}
	return &glue.GetTableOutput{Table: m.table}, nil
}

func (m *mockCatalog) CreatePartition(ctx context.Context, params *glue.CreatePartitionInput, optFns ...func(*glue.Options)) (*glue.CreatePartitionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	k := valuesKey(params.PartitionInput.Values)
	if _, ok := m.partitions[k]; ok {
		return nil, &types.AlreadyExistsException{Message: aws.String("Partition already exists.")}
	}
	m.partitions[k] = *params.PartitionInput
	return &glue.CreatePartitionOutput{}, nil
}

func (m *mockCatalog) BatchCreatePartition(ctx context.Context, params *glue.BatchCreatePartitionInput, optFns ...func(*glue.Options)) (*glue.BatchCreatePartitionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(params.PartitionInputList))
	if m.batchErr != nil {
		return nil, m.batchErr
	}

	out := &glue.BatchCreatePartitionOutput{}
	for _, in := range params.PartitionInputList {
		k := valuesKey(in.Values)
		code, failed := m.itemErrs[k]
		if !failed {
			if _, ok := m.partitions[k]; ok {
				code, failed = "AlreadyExistsException", true
			}
		}
		if failed {
			pe := types.PartitionError{PartitionValues: in.Values}
			// an empty code stands for an item error without details
			if code != "" {
				pe.ErrorDetail = &types.ErrorDetail{
					ErrorCode:    aws.String(code),
					ErrorMessage: aws.String(code + " for " + strings.Join(in.Values, "/")),
				}
			}
			out.Errors = append(out.Errors, pe)
			continue
		}
		m.partitions[k] = in
	}
	return out, nil
}

// mockObjects is an in-memory bucket usable as lister and writer.
type mockObjects struct {
	mu       sync.Mutex
	bucket   string
	objects  []domain.ObjectInfo
	data     map[string]string
	listErr  error
	deleted  []string
	platform string
}

func newMockObjects(bucket string, objects ...domain.ObjectInfo) *mockObjects {
	return &mockObjects{bucket: bucket, objects: objects, data: map[string]string{}, platform: "s3"}
}

func (m *mockObjects) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.ObjectInfo
	for _, o := range m.objects {
		if strings.HasPrefix(o.Key, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockObjects) Upload(ctx context.Context, key string, r io.Reader, quiet bool) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty upload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(data)
	m.objects = append(m.objects, domain.ObjectInfo{Key: key, Size: int64(len(data))})
	return m.bucket + "/" + key, nil
}

func (m *mockObjects) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, prefix)
	kept := m.objects[:0]
	for _, o := range m.objects {
		if !strings.HasPrefix(o.Key, prefix) {
			kept = append(kept, o)
		}
	}
	m.objects = kept
	return nil
}

func (m *mockObjects) GetBucketName() string  { return m.bucket }
func (m *mockObjects) GetStorageType() string { return m.platform }

// mockReports records saved run reports.
type mockReports struct {
	saved []domain.RunReport
}

func (m *mockReports) SaveRunReport(ctx context.Context, report domain.RunReport) error {
	m.saved = append(m.saved, report)
	return nil
}
