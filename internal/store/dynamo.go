package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"
)

// queryLimit caps every query, matching the page size the API serves.
const queryLimit = 100

// DynamoStore implements Store on DynamoDB.
type DynamoStore struct {
	client *dynamodb.Client
	prefix string
}

// NewDynamoStore builds a DynamoDB-backed store using the default AWS
// credential chain.
func NewDynamoStore(ctx context.Context, region, prefix string) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("store: load aws config: %w", err)
	}
	return &DynamoStore{client: dynamodb.NewFromConfig(cfg), prefix: prefix}, nil
}

// NewDynamoStoreFromClient wraps an existing client, used when the caller
// owns credential setup.
func NewDynamoStoreFromClient(client *dynamodb.Client, prefix string) *DynamoStore {
	return &DynamoStore{client: client, prefix: prefix}
}

func (s *DynamoStore) tableName(table string) string {
	return s.prefix + table
}

// Get fetches a single item by its full primary key.
func (s *DynamoStore) Get(ctx context.Context, table string, keys Keys) (map[string]any, error) {
	avKeys, err := attributevalue.MarshalMap(map[string]any(keys))
	if err != nil {
		return nil, fmt.Errorf("store: marshal keys: %w", err)
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName(table)),
		Key:       avKeys,
	})
	if err != nil {
		log.Warnf("store get %s: %v", table, err)
		return nil, fmt.Errorf("store: get %s: %w", table, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("store: unmarshal item: %w", err)
	}
	return item, nil
}

// Query returns every item whose key attributes equal keys, via the given
// secondary index when one is named.
func (s *DynamoStore) Query(ctx context.Context, table string, keys Keys, index string) ([]map[string]any, error) {
	names := make(map[string]string, len(keys))
	values := make(map[string]any, len(keys))
	conditions := make([]string, 0, len(keys))

	attrs := make([]string, 0, len(keys))
	for attr := range keys {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		names["#"+attr] = attr
		values[":"+attr] = keys[attr]
		conditions = append(conditions, fmt.Sprintf("#%s = :%s", attr, attr))
	}

	avValues, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("store: marshal query values: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName(table)),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: avValues,
		KeyConditionExpression:    aws.String(strings.Join(conditions, " and ")),
		Limit:                     aws.Int32(queryLimit),
	}
	if index != "" {
		input.IndexName = aws.String(index)
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		log.Warnf("store query %s: %v", table, err)
		return nil, fmt.Errorf("store: query %s: %w", table, err)
	}

	items := make([]map[string]any, 0, len(out.Items))
	for _, avItem := range out.Items {
		var item map[string]any
		if err := attributevalue.UnmarshalMap(avItem, &item); err != nil {
			return nil, fmt.Errorf("store: unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Insert writes the item, stamping createdAt and updatedAt. An existing item
// with the same key is overwritten: last write wins.
func (s *DynamoStore) Insert(ctx context.Context, table string, item map[string]any) (map[string]any, error) {
	now := time.Now().UnixMilli()
	item["createdAt"] = now
	item["updatedAt"] = now

	avItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("store: marshal item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName(table)),
		Item:      avItem,
	}); err != nil {
		log.Warnf("store insert %s: %v", table, err)
		return nil, fmt.Errorf("store: insert %s: %w", table, err)
	}
	return item, nil
}

// Update applies a partial item with a SET expression and returns the
// updated attributes.
func (s *DynamoStore) Update(ctx context.Context, table string, keys Keys, partial map[string]any) (map[string]any, error) {
	partial["updatedAt"] = time.Now().UnixMilli()

	names := make(map[string]string, len(partial))
	values := make(map[string]any, len(partial))
	conditions := make([]string, 0, len(partial))

	attrs := make([]string, 0, len(partial))
	for attr := range partial {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		names["#"+attr] = attr
		values[":"+attr] = partial[attr]
		conditions = append(conditions, fmt.Sprintf("#%s = :%s", attr, attr))
	}

	avKeys, err := attributevalue.MarshalMap(map[string]any(keys))
	if err != nil {
		return nil, fmt.Errorf("store: marshal keys: %w", err)
	}
	avValues, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("store: marshal update values: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName(table)),
		Key:                       avKeys,
		UpdateExpression:          aws.String("SET " + strings.Join(conditions, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: avValues,
		ReturnValues:              "UPDATED_NEW",
	})
	if err != nil {
		log.Warnf("store update %s: %v", table, err)
		return nil, fmt.Errorf("store: update %s: %w", table, err)
	}

	var updated map[string]any
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("store: unmarshal attributes: %w", err)
	}
	return updated, nil
}

// Delete removes an item by key. Deleting an absent item is not an error.
func (s *DynamoStore) Delete(ctx context.Context, table string, keys Keys) error {
	avKeys, err := attributevalue.MarshalMap(map[string]any(keys))
	if err != nil {
		return fmt.Errorf("store: marshal keys: %w", err)
	}

	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName(table)),
		Key:       avKeys,
	}); err != nil {
		log.Warnf("store delete %s: %v", table, err)
		return fmt.Errorf("store: delete %s: %w", table, err)
	}
	return nil
}
