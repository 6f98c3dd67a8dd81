package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"belief-interview/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	txErr        error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	lastTxInput  *dynamodb.TransactWriteItemsInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTxInput = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

func mustNewDynamoStore(t *testing.T, db *fakeDynamo) *DynamoStore {
	t.Helper()
	s, err := NewDynamoStore(db, "test-table")
	require.NoError(t, err)
	return s
}

func documentItem(t *testing.T, pk, sk string, v any) map[string]types.AttributeValue {
	t.Helper()
	doc, err := json.Marshal(v)
	require.NoError(t, err)
	return map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: pk},
		"SK":       &types.AttributeValueMemberS{Value: sk},
		"document": &types.AttributeValueMemberS{Value: string(doc)},
	}
}

func TestNewDynamoStore_Validates(t *testing.T) {
	_, err := NewDynamoStore(nil, "table")
	require.Error(t, err)
	_, err = NewDynamoStore(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestDynamoStore_GetConversation(t *testing.T) {
	c := sampleConversation("c1", "p1")
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: documentItem(t, "CONV#c1", skMeta, c)}}
	s := mustNewDynamoStore(t, db)

	got, err := s.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "p1", got.ParticipantID)
	require.Equal(t, domain.StageExploration, got.State.Stage)

	key := db.lastGetInput.Key
	require.Equal(t, "CONV#c1", key["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, skMeta, key["SK"].(*types.AttributeValueMemberS).Value)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestDynamoStore_GetParticipantNotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	s := mustNewDynamoStore(t, db)
	_, err := s.GetParticipant(context.Background(), "p1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, "PARTICIPANT#p1", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoStore_GetError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("throttled")}
	s := mustNewDynamoStore(t, db)
	_, err := s.GetConversation(context.Background(), "c1")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNotFound)
	require.Contains(t, err.Error(), "throttled")
}

func TestDynamoStore_CreateParticipantIsConditional(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db)
	require.NoError(t, s.CreateParticipant(context.Background(), sampleParticipant("p1")))
	require.Equal(t, "attribute_not_exists(PK)", *db.lastPutInput.ConditionExpression)

	doc, err := strAttr(db.lastPutInput.Item, "document")
	require.NoError(t, err)
	var p domain.Participant
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	require.Equal(t, "Yes", p.ViewsChanged())
}

func TestDynamoStore_SaveTurnIsTransactional(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db)
	c := sampleConversation("c1", "p1")
	c.State.TurnCount = 3
	c.State.Stage = domain.StageElaboration

	require.NoError(t, s.SaveTurn(context.Background(), sampleParticipant("p1"), c))
	require.Len(t, db.lastTxInput.TransactItems, 2)

	pItem := db.lastTxInput.TransactItems[0].Put.Item
	cItem := db.lastTxInput.TransactItems[1].Put.Item
	pk, err := strAttr(pItem, "PK")
	require.NoError(t, err)
	require.Equal(t, "PARTICIPANT#p1", pk)
	turns, err := intAttr(cItem, "turns")
	require.NoError(t, err)
	require.Equal(t, 3, turns)
	stage, err := strAttr(cItem, "stage")
	require.NoError(t, err)
	require.Equal(t, "elaboration", stage)
}

func TestDynamoStore_SaveTurnError(t *testing.T) {
	db := &fakeDynamo{txErr: errors.New("conditional check failed")}
	s := mustNewDynamoStore(t, db)
	err := s.SaveTurn(context.Background(), sampleParticipant("p1"), sampleConversation("c1", "p1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaveTurn")
}

func TestAttrHelpers(t *testing.T) {
	item := map[string]types.AttributeValue{
		"s": &types.AttributeValueMemberS{Value: "x"},
		"n": &types.AttributeValueMemberN{Value: "7"},
		"b": &types.AttributeValueMemberN{Value: "nope"},
	}
	_, err := strAttr(item, "missing")
	require.Error(t, err)
	_, err = strAttr(item, "n")
	require.Error(t, err)
	n, err := intAttr(item, "n")
	require.NoError(t, err)
	require.Equal(t, 7, n)
	_, err = intAttr(item, "b")
	require.Error(t, err)
	_, err = intAttr(item, "s")
	require.Error(t, err)
}

// intAttr reads a numeric projected attribute.
func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
