package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zzenonn/gluepart/internal/domain"
)

// DynamoDBAPI is the subset of the DynamoDB client used by ReportRepository.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// ReportRepository manages DynamoDB interactions for RunReport.
type ReportRepository struct {
	client    DynamoDBAPI
	tableName string
}

// NewReportRepository initializes a new ReportRepository.
func NewReportRepository(client DynamoDBAPI, tableName string) ReportRepository {
	return ReportRepository{
		client:    client,
		tableName: tableName,
	}
}

// SaveRunReport stores a run report in DynamoDB.
func (repo *ReportRepository) SaveRunReport(ctx context.Context, report domain.RunReport) error {
	item, err := attributevalue.MarshalMap(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(repo.tableName),
		Item:      item,
	}

	if _, err := repo.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	return nil
}

// GetRunReport retrieves a run report by id.
func (repo *ReportRepository) GetRunReport(ctx context.Context, runID string) (domain.RunReport, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
	}

	result, err := repo.client.GetItem(ctx, input)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("failed to get run report: %w", err)
	}

	if result.Item == nil {
		return domain.RunReport{}, errors.New("run report not found")
	}

	var report domain.RunReport
	if err := attributevalue.UnmarshalMap(result.Item, &report); err != nil {
		return domain.RunReport{}, fmt.Errorf("failed to unmarshal run report: %w", err)
	}

	return report, nil
}
