package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/gluepart/internal/domain"
	zerrors "github.com/zzenonn/gluepart/internal/errors"
	"github.com/zzenonn/gluepart/internal/partition"
)

const alreadyExistsCode = "AlreadyExistsException"

// CatalogAPI is the subset of the Glue client the Registrar calls.
type CatalogAPI interface {
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	CreatePartition(ctx context.Context, params *glue.CreatePartitionInput, optFns ...func(*glue.Options)) (*glue.CreatePartitionOutput, error)
	BatchCreatePartition(ctx context.Context, params *glue.BatchCreatePartitionInput, optFns ...func(*glue.Options)) (*glue.BatchCreatePartitionOutput, error)
}

var _ CatalogAPI = (*glue.Client)(nil)

// TableRef identifies a catalog table. An empty CatalogID means the caller's account.
type TableRef struct {
	CatalogID string
	Database  string
	Table     string
}

func (t TableRef) String() string {
	return t.Database + "." + t.Table
}

// Registrar creates partitions for one table. The table's storage descriptor is
// fetched on first use and reused for every partition the Registrar creates, so a
// Registrar should live for one run or one event invocation.
type Registrar struct {
	catalog     CatalogAPI
	table       TableRef
	callTimeout time.Duration

	mu       sync.Mutex
	template *types.StorageDescriptor
	keyCount int
}

// NewRegistrar creates a Registrar. callTimeout bounds each catalog call; zero
// leaves the caller's context as the only bound.
func NewRegistrar(catalog CatalogAPI, table TableRef, callTimeout time.Duration) *Registrar {
	return &Registrar{
		catalog:     catalog,
		table:       table,
		callTimeout: callTimeout,
	}
}

// Prepare fetches the table's storage descriptor if it has not been fetched yet.
func (r *Registrar) Prepare(ctx context.Context) error {
	_, _, err := r.descriptor(ctx)
	return err
}

func (r *Registrar) descriptor(ctx context.Context) (*types.StorageDescriptor, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.template != nil {
		return r.template, r.keyCount, nil
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	out, err := r.catalog.GetTable(callCtx, &glue.GetTableInput{
		CatalogId:    r.catalogID(),
		DatabaseName: aws.String(r.table.Database),
		Name:         aws.String(r.table.Table),
	})
	if err != nil {
		return nil, 0, registrationError(err)
	}
	if out.Table == nil {
		return nil, 0, &zerrors.RegistrationError{Code: "EntityNotFoundException", Message: "table " + r.table.String() + " not returned"}
	}

	r.template = out.Table.StorageDescriptor
	if r.template == nil {
		r.template = &types.StorageDescriptor{}
	}
	r.keyCount = len(out.Table.PartitionKeys)
	log.Debugf("Loaded storage descriptor for %s with %d partition keys", r.table, r.keyCount)

	return r.template, r.keyCount, nil
}

// RegisterOne creates a single partition. A partition that is already
// registered is reported as OutcomeAlreadyExists, not as an error.
func (r *Registrar) RegisterOne(ctx context.Context, candidate domain.PartitionCandidate) (domain.Outcome, error) {
	template, keyCount, err := r.descriptor(ctx)
	if err != nil {
		return 0, err
	}
	if err := checkArity(candidate, keyCount); err != nil {
		return 0, err
	}

	input := partitionInput(template, candidate)

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	_, err = r.catalog.CreatePartition(callCtx, &glue.CreatePartitionInput{
		CatalogId:      r.catalogID(),
		DatabaseName:   aws.String(r.table.Database),
		TableName:      aws.String(r.table.Table),
		PartitionInput: &input,
	})

	var exists *types.AlreadyExistsException
	switch {
	case errors.As(err, &exists):
		log.Infof("Partition %v already exists in %s", candidate.Values, r.table)
		return domain.OutcomeAlreadyExists, nil
	case err != nil:
		return 0, registrationError(err)
	}

	log.Infof("Partition %v added to %s at %s", candidate.Values, r.table, candidate.Location)
	return domain.OutcomeCreated, nil
}

// RegisterBatch creates candidates with one batch call per chunk of at most
// partition.MaxBatchSize and returns one Result per unique candidate.
func (r *Registrar) RegisterBatch(ctx context.Context, candidates []domain.PartitionCandidate) []domain.Result {
	if len(candidates) == 0 {
		return nil
	}

	template, keyCount, err := r.descriptor(ctx)
	if err != nil {
		return failAll(candidates, err)
	}

	chunks, err := partition.Batch(candidates, partition.MaxBatchSize)
	if err != nil {
		return failAll(candidates, err)
	}

	results := make([]domain.Result, 0, len(candidates))
	for _, chunk := range chunks {
		results = append(results, r.registerChunk(ctx, template, keyCount, chunk)...)
	}
	return results
}

func (r *Registrar) registerChunk(ctx context.Context, template *types.StorageDescriptor, keyCount int, chunk []domain.PartitionCandidate) []domain.Result {
	results := make([]domain.Result, len(chunk))
	index := make(map[string]int, len(chunk))
	inputs := make([]types.PartitionInput, 0, len(chunk))

	for i, c := range chunk {
		results[i].Candidate = c
		if err := checkArity(c, keyCount); err != nil {
			results[i].Err = err
			continue
		}
		index[c.Key()] = i
		inputs = append(inputs, partitionInput(template, c))
	}

	if len(inputs) == 0 {
		return results
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	out, err := r.catalog.BatchCreatePartition(callCtx, &glue.BatchCreatePartitionInput{
		CatalogId:          r.catalogID(),
		DatabaseName:       aws.String(r.table.Database),
		TableName:          aws.String(r.table.Table),
		PartitionInputList: inputs,
	})
	if err != nil {
		regErr := registrationError(err)
		log.Errorf("Batch create of %d partitions in %s failed: %v", len(inputs), r.table, regErr)
		for _, i := range index {
			results[i].Err = regErr
		}
		return results
	}

	for _, pe := range out.Errors {
		i, ok := index[domain.PartitionCandidate{Values: pe.PartitionValues}.Key()]
		if !ok {
			log.Warnf("Catalog reported an error for unknown partition %v", pe.PartitionValues)
			continue
		}

		code, message := zerrors.UnknownErrorCode, "no error detail returned"
		if pe.ErrorDetail != nil {
			if c := aws.ToString(pe.ErrorDetail.ErrorCode); c != "" {
				code = c
			}
			message = aws.ToString(pe.ErrorDetail.ErrorMessage)
		}

		if code == alreadyExistsCode {
			results[i].Outcome = domain.OutcomeAlreadyExists
		} else {
			results[i].Err = &zerrors.RegistrationError{Code: code, Message: message}
		}
		delete(index, results[i].Candidate.Key())
	}

	for _, i := range index {
		results[i].Outcome = domain.OutcomeCreated
	}

	log.Debugf("Batch create of %d partitions in %s returned %d item errors", len(inputs), r.table, len(out.Errors))
	return results
}

func (r *Registrar) catalogID() *string {
	if r.table.CatalogID == "" {
		return nil
	}
	return aws.String(r.table.CatalogID)
}

func (r *Registrar) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

// partitionInput copies the template and points it at the candidate's location
func partitionInput(template *types.StorageDescriptor, candidate domain.PartitionCandidate) types.PartitionInput {
	sd := *template
	sd.Location = aws.String(candidate.Location)

	return types.PartitionInput{
		StorageDescriptor: &sd,
		Values:            append([]string(nil), candidate.Values...),
	}
}

func checkArity(candidate domain.PartitionCandidate, keyCount int) error {
	if keyCount > 0 && len(candidate.Values) != keyCount {
		return fmt.Errorf("%w: %s has %d values, table has %d partition keys",
			zerrors.ErrMalformedKey, candidate.Location, len(candidate.Values), keyCount)
	}
	return nil
}

func registrationError(err error) *zerrors.RegistrationError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &zerrors.RegistrationError{Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage(), Err: err}
	}
	return &zerrors.RegistrationError{Code: zerrors.TransportErrorCode, Message: err.Error(), Err: err}
}

func failAll(candidates []domain.PartitionCandidate, err error) []domain.Result {
	results := make([]domain.Result, len(candidates))
	for i, c := range candidates {
		results[i] = domain.Result{Candidate: c, Err: err}
	}
	return results
}
