package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/checkoff-auth/internal/domain"
)

// RefreshTokenRepo holds one refresh token record per device.
// PK: userId, SK: deviceId. Items expire through the "expiration" TTL attribute.
type RefreshTokenRepo struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewRefreshTokenRepo(client *dynamodb.Client, tableName string) *RefreshTokenRepo {
	return &RefreshTokenRepo{client: client, tableName: tableName, now: time.Now}
}

// Put upserts the record; a later write for the same device wins.
func (r *RefreshTokenRepo) Put(ctx context.Context, t *domain.RefreshToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RefreshTokenRepo) Get(ctx context.Context, userID, deviceID string) (*domain.RefreshToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(fieldUserID, userID, fieldDeviceID, deviceID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("refresh token not found: %w", domain.ErrNotFound)
	}
	var t domain.RefreshToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token: %w", err)
	}
	if t.ExpiredAt(r.now()) {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, userID, deviceID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldUserID, userID, fieldDeviceID, deviceID),
	})
	return err
}

// ListByUser returns every unexpired record under userID, one per device.
func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	now := r.now()
	var tokens []domain.RefreshToken
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.RefreshToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal refresh tokens: %w", err)
		}
		for _, t := range page {
			if !t.ExpiredAt(now) {
				tokens = append(tokens, t)
			}
		}
	}
	return tokens, nil
}
