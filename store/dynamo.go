package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/xomify/xomify/types"
)

// History sort key prefixes. Monthly and weekly records share one table,
// partitioned by email and discriminated by sort key prefix.
const (
	wrappedPrefix = "wrapped#"
	releasePrefix = "release#"
)

// DynamoConfig holds configuration for the DynamoDB backend.
type DynamoConfig struct {
	// UsersTable is the user enrollment table (required).
	UsersTable string
	// HistoryTable is the digest history table (required).
	HistoryTable string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint URL, mainly for dynamodb-local.
	Endpoint string
}

// Validate checks that required configuration is present.
func (c *DynamoConfig) Validate() error {
	if c.UsersTable == "" {
		return fmt.Errorf("users table is required")
	}
	if c.HistoryTable == "" {
		return fmt.Errorf("history table is required")
	}
	return nil
}

// Dynamo is the DynamoDB-backed Store.
type Dynamo struct {
	db           *dynamodb.Client
	usersTable   string
	historyTable string
}

// NewDynamo creates a DynamoDB store.
// Uses the AWS SDK default credential chain (env vars, shared config,
// IAM role).
func NewDynamo(ctx context.Context, cfg DynamoConfig) (*Dynamo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var ddbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		ddbOpts = append(ddbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	return &Dynamo{
		db:           dynamodb.NewFromConfig(awsConfig, ddbOpts...),
		usersTable:   cfg.UsersTable,
		historyTable: cfg.HistoryTable,
	}, nil
}

// --- Users ---

func (d *Dynamo) ListUsers(ctx context.Context) ([]types.User, error) {
	var users []types.User
	var startKey map[string]ddbtypes.AttributeValue

	for {
		out, err := d.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.usersTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, newError(ErrUnavailable, "list_users", "", err)
		}

		var page []types.User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, newError(ErrUnavailable, "list_users", "", err)
		}
		users = append(users, page...)

		if out.LastEvaluatedKey == nil {
			return users, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (d *Dynamo) GetUser(ctx context.Context, email string) (types.User, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.usersTable),
		Key: map[string]ddbtypes.AttributeValue{
			"email": &ddbtypes.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return types.User{}, newError(ErrUnavailable, "get_user", email, err)
	}
	if out.Item == nil {
		return types.User{}, newError(ErrNotFound, "get_user", email, fmt.Errorf("no such user"))
	}

	var user types.User
	if err := attributevalue.UnmarshalMap(out.Item, &user); err != nil {
		return types.User{}, newError(ErrUnavailable, "get_user", email, err)
	}
	return user, nil
}

func (d *Dynamo) PutUser(ctx context.Context, user types.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return newError(ErrUnavailable, "put_user", user.Email, err)
	}
	if _, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.usersTable),
		Item:      item,
	}); err != nil {
		return newError(ErrUnavailable, "put_user", user.Email, err)
	}
	return nil
}

func (d *Dynamo) SetReleaseRadarID(ctx context.Context, email, playlistID string) error {
	_, err := d.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.usersTable),
		Key: map[string]ddbtypes.AttributeValue{
			"email": &ddbtypes.AttributeValueMemberS{Value: email},
		},
		UpdateExpression:    aws.String("SET releaseRadarId = :id"),
		ConditionExpression: aws.String("attribute_exists(email)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":id": &ddbtypes.AttributeValueMemberS{Value: playlistID},
		},
	})
	if err != nil {
		var condFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return newError(ErrNotFound, "set_release_radar_id", email, err)
		}
		return newError(ErrUnavailable, "set_release_radar_id", email, err)
	}
	return nil
}

// --- History ---

func (d *Dynamo) GetWrapped(ctx context.Context, email, monthKey string) (types.WrappedRecord, error) {
	item, err := d.getHistory(ctx, "get_wrapped", email, wrappedPrefix+monthKey)
	if err != nil {
		return types.WrappedRecord{}, err
	}

	var rec types.WrappedRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return types.WrappedRecord{}, newError(ErrUnavailable, "get_wrapped", email, err)
	}
	return rec, nil
}

func (d *Dynamo) PutWrapped(ctx context.Context, rec types.WrappedRecord) error {
	return d.putHistory(ctx, "put_wrapped", rec.Email, wrappedPrefix+rec.MonthKey, rec)
}

func (d *Dynamo) ListWrapped(ctx context.Context, email string) ([]types.WrappedRecord, error) {
	items, err := d.queryHistory(ctx, "list_wrapped", email, wrappedPrefix)
	if err != nil {
		return nil, err
	}

	var recs []types.WrappedRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, newError(ErrUnavailable, "list_wrapped", email, err)
	}
	return recs, nil
}

func (d *Dynamo) GetReleaseWeek(ctx context.Context, email, weekKey string) (types.ReleaseWeekRecord, error) {
	item, err := d.getHistory(ctx, "get_release_week", email, releasePrefix+weekKey)
	if err != nil {
		return types.ReleaseWeekRecord{}, err
	}

	var rec types.ReleaseWeekRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return types.ReleaseWeekRecord{}, newError(ErrUnavailable, "get_release_week", email, err)
	}
	return rec, nil
}

func (d *Dynamo) PutReleaseWeek(ctx context.Context, rec types.ReleaseWeekRecord) error {
	return d.putHistory(ctx, "put_release_week", rec.Email, releasePrefix+rec.WeekKey, rec)
}

func (d *Dynamo) ListReleaseWeeks(ctx context.Context, email string) ([]types.ReleaseWeekRecord, error) {
	items, err := d.queryHistory(ctx, "list_release_weeks", email, releasePrefix)
	if err != nil {
		return nil, err
	}

	var recs []types.ReleaseWeekRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, newError(ErrUnavailable, "list_release_weeks", email, err)
	}
	return recs, nil
}

// getHistory fetches one history item by (email, sk).
func (d *Dynamo) getHistory(ctx context.Context, op, email, sk string) (map[string]ddbtypes.AttributeValue, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.historyTable),
		Key: map[string]ddbtypes.AttributeValue{
			"email": &ddbtypes.AttributeValueMemberS{Value: email},
			"sk":    &ddbtypes.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, newError(ErrUnavailable, op, email+"/"+sk, err)
	}
	if out.Item == nil {
		return nil, newError(ErrNotFound, op, email+"/"+sk, fmt.Errorf("no such record"))
	}
	return out.Item, nil
}

// putHistory writes one history item, stamping the composite sort key.
func (d *Dynamo) putHistory(ctx context.Context, op, email, sk string, rec any) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return newError(ErrUnavailable, op, email+"/"+sk, err)
	}
	item["sk"] = &ddbtypes.AttributeValueMemberS{Value: sk}

	if _, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.historyTable),
		Item:      item,
	}); err != nil {
		return newError(ErrUnavailable, op, email+"/"+sk, err)
	}
	return nil
}

// queryHistory returns all of a user's history items under a sort key
// prefix, following pagination.
func (d *Dynamo) queryHistory(ctx context.Context, op, email, prefix string) ([]map[string]ddbtypes.AttributeValue, error) {
	var items []map[string]ddbtypes.AttributeValue
	var startKey map[string]ddbtypes.AttributeValue

	for {
		out, err := d.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.historyTable),
			KeyConditionExpression: aws.String("email = :email AND begins_with(sk, :prefix)"),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":email":  &ddbtypes.AttributeValueMemberS{Value: email},
				":prefix": &ddbtypes.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, newError(ErrUnavailable, op, email, err)
		}
		items = append(items, out.Items...)

		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Verify Dynamo implements the store interface.
var _ Store = (*Dynamo)(nil)
