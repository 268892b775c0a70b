package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

const (
	defaultUsersTable = "Users"
	userPK            = "user_id"
)

// DynamoStore reads and writes user profiles in the Users table, keyed
// by user_id.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoStore(cfg aws.Config, table string) *DynamoStore {
	if table == "" {
		table = defaultUsersTable
	}
	return &DynamoStore{
		client: dynamodb.NewFromConfig(cfg),
		table:  table,
	}
}

func (s *DynamoStore) GetUser(ctx context.Context, userID string) (models.UserProfile, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       userKey(userID),
	})
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("dynamo get user %s: %w", userID, err)
	}
	if len(out.Item) == 0 {
		return models.UserProfile{}, ErrNotFound
	}
	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(out.Item, &profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("dynamo decode user %s: %w", userID, err)
	}
	return profile, nil
}

func (s *DynamoStore) SetUserCredentials(ctx context.Context, userID, accessToken, serviceArea string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              userKey(userID),
		UpdateExpression: aws.String("SET access_token = :t, service_area = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: accessToken},
			":a": &types.AttributeValueMemberS{Value: serviceArea},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo set credentials for %s: %w", userID, err)
	}
	return nil
}

func (s *DynamoStore) TouchUser(ctx context.Context, userID string, timestamp int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              userKey(userID),
		UpdateExpression: aws.String("SET last_iteration = :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberN{Value: strconv.FormatInt(timestamp, 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo touch user %s: %w", userID, err)
	}
	return nil
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		userPK: &types.AttributeValueMemberS{Value: userID},
	}
}
