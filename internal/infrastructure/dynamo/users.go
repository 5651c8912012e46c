package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/checkoff-auth/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// PK: userId
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// Create writes a new user. It fails with domain.ErrConflict if the id is taken.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user %s exists: %w", u.UserID, domain.ErrConflict)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// Update applies a partial update to an existing user. It never creates one.
func (r *UserRepo) Update(ctx context.Context, userID string, upd domain.UserUpdate) error {
	ue, err := buildUpdateExpr(userUpdates(upd))
	if err != nil {
		return err
	}
	ue.Names["#pk"] = fieldUserID
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return err
}

// userUpdates maps the set fields of upd to their attribute names.
func userUpdates(upd domain.UserUpdate) map[string]interface{} {
	m := make(map[string]interface{}, 4)
	if upd.PasswordHash != nil {
		m[fieldPassword] = *upd.PasswordHash
	}
	if upd.Name != nil {
		m[fieldName] = *upd.Name
	}
	if upd.Projects != nil {
		projects := *upd.Projects
		if projects == nil {
			projects = []string{}
		}
		m[fieldProjects] = projects
	}
	if upd.Status != nil {
		m[fieldStatus] = *upd.Status
	}
	return m
}
