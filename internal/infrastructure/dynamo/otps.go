package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/checkoff-auth/internal/domain"
)

// OTPRepo manages one-time codes.
// PK: userId, SK: otp. Items expire through the "expiration" TTL attribute.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *OTPRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Get returns domain.ErrNotFound for codes that are missing or past expiry.
// TTL deletion lags, so expired items can still be physically present.
func (r *OTPRepo) Get(ctx context.Context, userID, code string) (*domain.OneTimeCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(fieldUserID, userID, fieldOTP, code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var c domain.OneTimeCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal otp: %w", err)
	}
	if c.ExpiredAt(r.now()) {
		return nil, fmt.Errorf("otp expired: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *OTPRepo) Delete(ctx context.Context, userID, code string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldUserID, userID, fieldOTP, code),
	})
	return err
}
