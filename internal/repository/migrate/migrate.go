// Package migrate creates and drops the DynamoDB tables gluepart owns.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

type Migration interface {
	Version() string
	TableName() string
	Up(ctx context.Context, client *dynamodb.Client) error
	Down(ctx context.Context, client *dynamodb.Client) error
}

// Up applies migrations in order. Tables that already exist are left alone.
func Up(ctx context.Context, client *dynamodb.Client, migrations ...Migration) error {
	for _, m := range migrations {
		err := m.Up(ctx, client)
		var inUse *types.ResourceInUseException
		switch {
		case errors.As(err, &inUse):
			log.Infof("Table %s already exists, skipping %s", m.TableName(), m.Version())
		case err != nil:
			return fmt.Errorf("migration %s failed: %w", m.Version(), err)
		default:
			log.Infof("Applied %s", m.Version())
		}
	}
	return nil
}

// Down rolls migrations back in reverse order.
func Down(ctx context.Context, client *dynamodb.Client, migrations ...Migration) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		err := m.Down(ctx, client)
		var notFound *types.ResourceNotFoundException
		switch {
		case errors.As(err, &notFound):
			log.Infof("Table %s does not exist, skipping %s", m.TableName(), m.Version())
		case err != nil:
			return fmt.Errorf("rollback of %s failed: %w", m.Version(), err)
		default:
			log.Infof("Rolled back %s", m.Version())
		}
	}
	return nil
}
