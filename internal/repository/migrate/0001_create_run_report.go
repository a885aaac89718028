package migrate

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const RunReportVersion = "20250905000000_run_report_table"

type CreateRunReportTable struct {
	Table string
}

func (m *CreateRunReportTable) Version() string {
	return RunReportVersion
}

func (m *CreateRunReportTable) TableName() string {
	return m.Table
}

func (m *CreateRunReportTable) Up(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("run_id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("run_id"),
				KeyType:       types.KeyTypeHash, // Partition Key
			},
		},
		TableName:   aws.String(m.Table),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("PartitionRegistrationReports"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.Table),
	}, 5*time.Minute)
}

func (m *CreateRunReportTable) Down(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.DeleteTableInput{
		TableName: aws.String(m.Table),
	}

	_, err := client.DeleteTable(ctx, input)
	return err
}
