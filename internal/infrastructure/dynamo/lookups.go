package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/checkoff-auth/internal/domain"
)

// EmailLookupRepo maps emails to user ids. PK: email
type EmailLookupRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewEmailLookupRepo(client *dynamodb.Client, tableName string) *EmailLookupRepo {
	return &EmailLookupRepo{client: client, tableName: tableName}
}

// Create claims an email. It fails with domain.ErrConflict when the email is already claimed.
func (r *EmailLookupRepo) Create(ctx context.Context, l *domain.EmailLookup) error {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal email lookup: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldEmail},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("email already claimed: %w", domain.ErrConflict)
	}
	return err
}

func (r *EmailLookupRepo) Get(ctx context.Context, email string) (*domain.EmailLookup, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldEmail, email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("email lookup not found: %w", domain.ErrNotFound)
	}
	var l domain.EmailLookup
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, fmt.Errorf("unmarshal email lookup: %w", err)
	}
	return &l, nil
}
