package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"belief-interview/internal/domain"
)

const (
	skProfile = "PROFILE#"
	skMeta    = "META#"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore keeps participant and conversation documents in a single
// DynamoDB table. The JSON document is stored verbatim in the "document"
// attribute; a few fields are projected alongside it for console queries.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoStore creates a DynamoDB-backed store.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

func participantPK(id string) string {
	return "PARTICIPANT#" + id
}

func convPK(id string) string {
	return "CONV#" + id
}

// CreateParticipant puts a new participant item, failing if it exists.
func (s *DynamoStore) CreateParticipant(ctx context.Context, p domain.Participant) error {
	if err := validateID("participant", p.ID); err != nil {
		return err
	}
	item, err := participantItem(p)
	if err != nil {
		return fmt.Errorf("repository: CreateParticipant: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateParticipant: %w", err)
	}
	return nil
}

// GetParticipant reads a participant item.
func (s *DynamoStore) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	if err := validateID("participant", id); err != nil {
		return domain.Participant{}, err
	}
	var p domain.Participant
	if err := s.getDocument(ctx, participantPK(id), skProfile, &p); err != nil {
		return domain.Participant{}, fmt.Errorf("repository: GetParticipant %s: %w", id, err)
	}
	return p, nil
}

// CreateConversation puts a new conversation item, failing if it exists.
func (s *DynamoStore) CreateConversation(ctx context.Context, c domain.Conversation) error {
	if err := validateID("conversation", c.ID); err != nil {
		return err
	}
	item, err := conversationItem(c)
	if err != nil {
		return fmt.Errorf("repository: CreateConversation: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateConversation: %w", err)
	}
	return nil
}

// GetConversation reads a conversation item.
func (s *DynamoStore) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	if err := validateID("conversation", id); err != nil {
		return domain.Conversation{}, err
	}
	var c domain.Conversation
	if err := s.getDocument(ctx, convPK(id), skMeta, &c); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: GetConversation %s: %w", id, err)
	}
	return c, nil
}

// SaveConversation replaces a conversation item.
func (s *DynamoStore) SaveConversation(ctx context.Context, c domain.Conversation) error {
	if err := validateID("conversation", c.ID); err != nil {
		return err
	}
	item, err := conversationItem(c)
	if err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	return nil
}

// SaveTurn writes the participant and conversation items in one transaction,
// so the two documents are never observed out of step.
func (s *DynamoStore) SaveTurn(ctx context.Context, p domain.Participant, c domain.Conversation) error {
	if err := validateID("participant", p.ID); err != nil {
		return err
	}
	if err := validateID("conversation", c.ID); err != nil {
		return err
	}
	pItem, err := participantItem(p)
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	cItem, err := conversationItem(c)
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(s.tableName), Item: pItem}},
			{Put: &types.Put{TableName: aws.String(s.tableName), Item: cItem}},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	return nil
}

func (s *DynamoStore) getDocument(ctx context.Context, pk, sk string, v any) error {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ErrNotFound
	}
	doc, err := strAttr(out.Item, "document")
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func participantItem(p domain.Participant) (map[string]types.AttributeValue, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode participant: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: participantPK(p.ID)},
		"SK":        &types.AttributeValueMemberS{Value: skProfile},
		"id":        &types.AttributeValueMemberS{Value: p.ID},
		"messages":  &types.AttributeValueMemberN{Value: strconv.Itoa(len(p.ChatbotInteraction.Messages))},
		"updatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		"document":  &types.AttributeValueMemberS{Value: string(doc)},
	}, nil
}

func conversationItem(c domain.Conversation) (map[string]types.AttributeValue, error) {
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: convPK(c.ID)},
		"SK":            &types.AttributeValueMemberS{Value: skMeta},
		"id":            &types.AttributeValueMemberS{Value: c.ID},
		"participantId": &types.AttributeValueMemberS{Value: c.ParticipantID},
		"stage":         &types.AttributeValueMemberS{Value: string(c.State.Stage)},
		"turns":         &types.AttributeValueMemberN{Value: strconv.Itoa(c.State.TurnCount)},
		"updatedAt":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		"document":      &types.AttributeValueMemberS{Value: string(doc)},
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
