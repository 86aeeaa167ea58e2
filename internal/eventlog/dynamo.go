package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/wxcache/weather-service/internal/weather"
)

// dynamoAPI is the slice of the DynamoDB client the log uses. Tests
// substitute a fake; production passes *dynamodb.Client.
type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Config holds DynamoLog settings.
type Config struct {
	Table    string
	Region   string
	Endpoint string // optional custom endpoint (DynamoDB Local, LocalStack)
}

// DynamoLog appends one item per request outcome to a DynamoDB-compatible
// table keyed by event id.
type DynamoLog struct {
	client dynamoAPI
	table  string

	now   func() time.Time
	newID func() string
}

// NewDynamoLog creates a DynamoDB-backed event log.
func NewDynamoLog(ctx context.Context, cfg Config) (*DynamoLog, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewDynamoLogWithClient(client, cfg.Table), nil
}

// NewDynamoLogWithClient creates a log on an already-constructed client.
func NewDynamoLogWithClient(client dynamoAPI, table string) *DynamoLog {
	return &DynamoLog{
		client: client,
		table:  table,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// EnsureTable creates the backing table if it does not exist yet and waits
// for it to become active.
func (d *DynamoLog) EnsureTable(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.table),
	})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", d.table, err)
	}

	_, err = d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("event_id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("event_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", d.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.table),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("table %s did not become active: %w", d.table, err)
	}

	log.Printf("INFO: created table %s", d.table)
	return nil
}

// Append records one request outcome, generating the event id and
// timestamping it at call time. Returns the id of the new event.
func (d *DynamoLog) Append(ctx context.Context, city, location string, latencyMS float64, cached bool, errMsg string) (string, error) {
	e := weather.Event{
		ID:        d.newID(),
		City:      city,
		Timestamp: d.now().UTC(),
		Location:  location,
		LatencyMS: latencyMS,
		Cached:    cached,
		Error:     errMsg,
	}

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      marshalEvent(e),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put event for %s: %v", weather.ErrLog, city, err)
	}

	return e.ID, nil
}

// Recent returns up to limit events, most recent first. The scan order of
// the backing store is not timestamp-ordered, so the sort happens here.
// Best-effort: retrieval failure yields an empty list, never an error.
func (d *DynamoLog) Recent(ctx context.Context, limit int) ([]weather.Event, error) {
	out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.table),
		Limit:     aws.Int32(int32(limit)),
	})
	if err != nil {
		log.Printf("WARN: failed to retrieve recent events: %v", err)
		return []weather.Event{}, nil
	}

	events := make([]weather.Event, 0, len(out.Items))
	for _, item := range out.Items {
		e, err := unmarshalEvent(item)
		if err != nil {
			log.Printf("WARN: skipping malformed event item: %v", err)
			continue
		}
		events = append(events, e)
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].ID > events[j].ID
	})

	return events, nil
}

// Get retrieves a single event by id, or nil when it does not exist.
func (d *DynamoLog) Get(ctx context.Context, eventID string) (*weather.Event, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: eventID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get event %s: %v", weather.ErrLog, eventID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	e, err := unmarshalEvent(out.Item)
	if err != nil {
		return nil, fmt.Errorf("%w: decode event %s: %v", weather.ErrLog, eventID, err)
	}
	return &e, nil
}
