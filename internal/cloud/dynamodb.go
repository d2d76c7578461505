package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type dynamoPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// CommandRecord is one audited control command.
type CommandRecord struct {
	RequestID      string `dynamodbav:"requestId"`
	IntersectionID string `dynamodbav:"intersectionId"`
	Timestamp      int64  `dynamodbav:"timestamp"`
	Kind           string `dynamodbav:"kind"`
	Direction      string `dynamodbav:"direction,omitempty"`
	Succeeded      bool   `dynamodbav:"succeeded"`
	UsedFallback   bool   `dynamodbav:"usedFallback"`
	Error          string `dynamodbav:"error,omitempty"`
}

// CommandAudit writes command outcomes to a DynamoDB table keyed by request id.
type CommandAudit struct {
	svc   dynamoPutter
	table string
	now   func() time.Time
}

func NewCommandAudit(cfg aws.Config, table string) (*CommandAudit, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamodb table: %w", ErrNotConfigured)
	}
	return &CommandAudit{svc: dynamodb.NewFromConfig(cfg), table: table, now: time.Now}, nil
}

func (a *CommandAudit) RecordCommand(ctx context.Context, req domain.CommandRequest, out domain.CommandOutcome) error {
	rec := CommandRecord{
		RequestID:      out.RequestID,
		IntersectionID: req.IntersectionID,
		Timestamp:      a.now().Unix(),
		Kind:           string(req.Kind),
		Direction:      string(req.Direction),
		Succeeded:      out.Succeeded,
		UsedFallback:   out.UsedFallback,
		Error:          out.Error,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal command record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(a.table),
		Item:      item,
	}
	if _, err := a.svc.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}
