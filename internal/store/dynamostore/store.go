package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

var (
	errMissingClient = errors.New("dynamostore: client is required")
	errMissingTable  = errors.New("dynamostore: table name is required")
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type Config struct {
	Client API
	Table  string
	Logger *zap.Logger
}

// Store keeps document records in a DynamoDB table with partition key "workspace" and sort key "id".
type Store struct {
	client API
	table  string
	logger *zap.Logger
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errMissingTable
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: cfg.Client, table: cfg.Table, logger: logger}, nil
}

var _ store.Store = (*Store)(nil)

func itemKey(key store.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		store.AttributeWorkspace: &types.AttributeValueMemberS{Value: key.Workspace},
		store.AttributeID:        &types.AttributeValueMemberS{Value: key.ID},
	}
}

func (s *Store) GetItem(ctx context.Context, key store.Key) (store.Record, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Record{}, false, fmt.Errorf("dynamostore: get %s: %w", key, err)
	}
	if result.Item == nil {
		return store.Record{}, false, nil
	}
	var record store.Record
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return store.Record{}, false, fmt.Errorf("dynamostore: decode %s: %w", key, err)
	}
	return record, true, nil
}

func (s *Store) QueryItems(ctx context.Context, workspace string) ([]store.Record, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#workspace = :workspace"),
		ExpressionAttributeNames: map[string]string{
			"#workspace": store.AttributeWorkspace,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":workspace": &types.AttributeValueMemberS{Value: workspace},
		},
		ConsistentRead: aws.Bool(true),
	})

	var records []store.Record
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamostore: query %s: %w", workspace, err)
		}
		var batch []store.Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("dynamostore: decode %s: %w", workspace, err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

func (s *Store) Put(ctx context.Context, key store.Key, record store.Record, expectedVersion int64) error {
	record.Workspace = key.Workspace
	record.ID = key.ID
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("dynamostore: encode %s: %w", key, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id) OR #version = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#id":      store.AttributeID,
			"#version": store.AttributeVersion,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("dynamostore: put %s: %w: expected %d", key, store.ErrVersionConflict, expectedVersion)
		}
		return fmt.Errorf("dynamostore: put %s: %w", key, err)
	}
	return nil
}

// Update translates the record difference into UpdateItem calls with nested map paths. Maps the
// patch descends into are first created with if_not_exists, since DynamoDB cannot set a path under a
// missing map and rejects overlapping paths within one expression.
func (s *Store) Update(ctx context.Context, key store.Key, newRecord, oldRecord store.Record) error {
	patch := store.Diff(oldRecord, newRecord)
	if patch.Empty() {
		return nil
	}
	if len(patch.Ensure) > 0 {
		if err := s.updateItem(ctx, key, buildEnsureExpression(patch.Ensure)); err != nil {
			return err
		}
	}
	expression, err := buildUpdateExpression(patch)
	if err != nil {
		return fmt.Errorf("dynamostore: update %s: %w", key, err)
	}
	return s.updateItem(ctx, key, expression)
}

func (s *Store) updateItem(ctx context.Context, key store.Key, expression updateExpression) error {
	expression.names["#id"] = store.AttributeID
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       itemKey(key),
		UpdateExpression:          aws.String(expression.update),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  expression.names,
		ExpressionAttributeValues: expression.values,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("dynamostore: update %s: %w", key, store.ErrItemNotFound)
		}
		return fmt.Errorf("dynamostore: update %s: %w", key, err)
	}
	s.logger.Debug("document item patched", zap.String("key", key.String()), zap.String("expression", expression.update))
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("dynamostore: delete %s: %w", key, err)
	}
	return nil
}

type updateExpression struct {
	update string
	names  map[string]string
	values map[string]types.AttributeValue
}

type expressionBuilder struct {
	expression   updateExpression
	placeholders map[string]string
}

func newExpressionBuilder() *expressionBuilder {
	return &expressionBuilder{
		expression: updateExpression{
			names:  make(map[string]string),
			values: make(map[string]types.AttributeValue),
		},
		placeholders: make(map[string]string),
	}
}

func (b *expressionBuilder) placeholder(name string) string {
	if existing, ok := b.placeholders[name]; ok {
		return existing
	}
	token := fmt.Sprintf("#n%d", len(b.placeholders))
	b.placeholders[name] = token
	b.expression.names[token] = name
	return token
}

func (b *expressionBuilder) path(segments []string) string {
	tokens := make([]string, 0, len(segments))
	for _, segment := range segments {
		tokens = append(tokens, b.placeholder(segment))
	}
	return strings.Join(tokens, ".")
}

func (b *expressionBuilder) value(value types.AttributeValue) string {
	token := fmt.Sprintf(":v%d", len(b.expression.values))
	b.expression.values[token] = value
	return token
}

func (b *expressionBuilder) build(sets, removes []string) updateExpression {
	var clauses []string
	if len(sets) > 0 {
		clauses = append(clauses, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		clauses = append(clauses, "REMOVE "+strings.Join(removes, ", "))
	}
	b.expression.update = strings.Join(clauses, " ")
	if len(b.expression.values) == 0 {
		b.expression.values = nil
	}
	return b.expression
}

func buildEnsureExpression(paths [][]string) updateExpression {
	builder := newExpressionBuilder()
	empty := builder.value(&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}})
	sets := make([]string, 0, len(paths))
	for _, segments := range paths {
		path := builder.path(segments)
		sets = append(sets, fmt.Sprintf("%s = if_not_exists(%s, %s)", path, path, empty))
	}
	return builder.build(sets, nil)
}

func buildUpdateExpression(patch store.Patch) (updateExpression, error) {
	builder := newExpressionBuilder()
	var sets []string
	for _, assignment := range patch.Set {
		value, err := attributevalue.Marshal(assignment.Value)
		if err != nil {
			return updateExpression{}, err
		}
		sets = append(sets, fmt.Sprintf("%s = %s", builder.path(assignment.Path), builder.value(value)))
	}
	var removes []string
	for _, segments := range patch.Remove {
		removes = append(removes, builder.path(segments))
	}
	return builder.build(sets, removes), nil
}
