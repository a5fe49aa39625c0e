package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/zlnvch/placebot/store"
)

func newDynamoDBClient(ctx context.Context, devMode bool, dynamodbEndpoint string) (*dynamodb.Client, error) {
	var cfg aws.Config
	var err error

	if devMode {
		// Load config with dummy credentials and region for local/dev
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion("us-east-1"),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
			),
		)
		if err != nil {
			return nil, err
		}

		// Override endpoint for DynamoDB locally
		return dynamodb.New(dynamodb.Options{
			Credentials:      cfg.Credentials,
			Region:           cfg.Region,
			EndpointResolver: dynamodb.EndpointResolverFromURL(dynamodbEndpoint),
		}), nil
	}

	// Production/Fargate: default config (uses Task Role and AWS endpoints)
	cfg, err = config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg), nil
}

func getTables(client *dynamodb.Client, ctx context.Context) ([]string, error) {
	output, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return nil, err
	}

	return output.TableNames, nil
}

// getItem retrieves an item of type T from DynamoDB by PK and SK
func getItem[T any](dynamoStore *DynamoPlacebotStore, ctx context.Context, pk string, sk string, consistentRead bool) (T, error) {
	var zero T

	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}

	resp, err := dynamoStore.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(dynamoStore.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(consistentRead),
	})
	if err != nil {
		return zero, fmt.Errorf("GetItem failed: %w", err)
	}
	if resp.Item == nil {
		return zero, store.ErrItemNotFound
	}

	var item T
	if err := attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return zero, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	return item, nil
}

// ensureItem inserts an item only if its PK+SK does not exist yet; when it
// does, the existing item is fetched and returned instead.
func ensureItem[T any](dynamoStore *DynamoPlacebotStore, ctx context.Context, item T) (T, bool, error) {
	avMap, err := attributevalue.MarshalMap(item)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("marshal error: %w", err)
	}

	if _, ok := avMap["PK"]; !ok {
		var zero T
		return zero, false, errors.New("struct missing PK field")
	}
	if _, ok := avMap["SK"]; !ok {
		var zero T
		return zero, false, errors.New("struct missing SK field")
	}

	// Conditional PutItem: insert only if PK+SK does not exist
	_, err = dynamoStore.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(dynamoStore.tableName),
		Item:                avMap,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			// Already exists: fetch it
			key := map[string]types.AttributeValue{
				"PK": avMap["PK"],
				"SK": avMap["SK"],
			}
			getResp, err := dynamoStore.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(dynamoStore.tableName),
				Key:       key,
			})
			if err != nil {
				var zero T
				return zero, false, fmt.Errorf("failed to get existing item: %w", err)
			}
			if getResp.Item == nil {
				var zero T
				return zero, false, errors.New("item supposedly exists but GetItem returned nothing")
			}

			var existing T
			if err := attributevalue.UnmarshalMap(getResp.Item, &existing); err != nil {
				var zero T
				return zero, false, fmt.Errorf("failed to unmarshal existing item: %w", err)
			}
			return existing, false, nil
		}
		var zero T
		return zero, false, fmt.Errorf("failed to put item: %w", err)
	}

	return item, true, nil // Newly inserted
}

// putItem writes an item unconditionally (create or full replace).
func putItem[T any](dynamoStore *DynamoPlacebotStore, ctx context.Context, item T) error {
	avMap, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if _, ok := avMap["PK"]; !ok {
		return errors.New("struct missing PK field")
	}
	if _, ok := avMap["SK"]; !ok {
		return errors.New("struct missing SK field")
	}

	_, err = dynamoStore.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Item:      avMap,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// queryAllByGSIItems returns all items of type T whose GSI partition key
// matches, fully unmarshalled (the index must project all attributes).
func queryAllByGSIItems[T any](dynamoStore *DynamoPlacebotStore, ctx context.Context, indexName string, pkField string, pkValue string) ([]T, error) {
	var results []T

	input := &dynamodb.QueryInput{
		TableName:              aws.String(dynamoStore.tableName),
		IndexName:              aws.String(indexName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": pkField,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkValue},
		},
	}

	// Use pagination to retrieve all items
	paginator := dynamodb.NewQueryPaginator(dynamoStore.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query GSI failed: %w", err)
		}

		var pageItems []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page items: %w", err)
		}

		results = append(results, pageItems...)
	}

	return results, nil
}

// deleteItemWithCondition deletes an item by PK and SK, only if a specified field equals a given value.
// Returns an error if the condition is not met or other DB issues occur.
func deleteItemWithCondition(dynamoStore *DynamoPlacebotStore, ctx context.Context, pk string, sk string, conditionField string, expectedValue string) error {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Key:       key,
	}

	// Only set ConditionExpression if a field is specified
	if conditionField != "" {
		input.ConditionExpression = aws.String(fmt.Sprintf("%s = :val", conditionField))
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":val": &types.AttributeValueMemberS{Value: expectedValue},
		}
	}

	_, err := dynamoStore.client.DeleteItem(ctx, input)

	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			// Could be because the item doesn't exist or condition not met
			getResp, getErr := dynamoStore.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(dynamoStore.tableName),
				Key:       key,
			})
			if getErr != nil {
				return fmt.Errorf("delete failed, and GetItem check also failed: %w", getErr)
			}
			if getResp.Item == nil {
				return store.ErrItemNotFound
			}
			return store.ErrConditionFailed
		}
		return fmt.Errorf("delete failed: %w", err)
	}

	return nil
}

// updateItem updates an existing item in DynamoDB.
// Only fields listed in fieldsToUpdate are updated.
// Returns an error if the item does not exist.
func updateItem[T any](
	dynamoStore *DynamoPlacebotStore,
	ctx context.Context,
	item T,
	fieldsToUpdate []string,
) (T, error) {
	var zero T

	avMap, err := attributevalue.MarshalMap(item)
	if err != nil {
		return zero, fmt.Errorf("marshal error: %w", err)
	}

	pkAttr, ok := avMap["PK"]
	if !ok {
		return zero, errors.New("struct missing PK field")
	}
	skAttr, ok := avMap["SK"]
	if !ok {
		return zero, errors.New("struct missing SK field")
	}

	updateExpr := "SET "
	exprAttrValues := make(map[string]types.AttributeValue)
	exprAttrNames := make(map[string]string)
	first := true

	for _, field := range fieldsToUpdate {
		// Never update keys
		if field == "PK" || field == "SK" {
			continue
		}

		val, ok := avMap[field]
		if !ok {
			continue // field not present on struct
		}

		if !first {
			updateExpr += ", "
		}
		first = false

		updateExpr += fmt.Sprintf("#%s = :%s", field, field)
		exprAttrNames["#"+field] = field
		exprAttrValues[":"+field] = val
	}

	key := map[string]types.AttributeValue{
		"PK": pkAttr,
		"SK": skAttr,
	}

	// Perform the update with a condition that the item exists
	out, err := dynamoStore.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(dynamoStore.tableName),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  exprAttrNames,
		ExpressionAttributeValues: exprAttrValues,
		ConditionExpression:       aws.String("attribute_exists(PK) AND attribute_exists(SK)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return zero, store.ErrItemNotFound
		}
		return zero, fmt.Errorf("update failed: %w", err)
	}

	var updated T
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return zero, fmt.Errorf("failed to unmarshal updated item: %w", err)
	}

	return updated, nil
}
