// Package dynamo persists templates, accounts and global settings in a
// single DynamoDB table. Listing goes through the GSI_ItemType index, which
// partitions items by kind and projects all attributes.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofrs/uuid/v5"

	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/settings"
)

const itemTypeIndex = "GSI_ItemType"

type DynamoPlacebotStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoPlacebotStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoPlacebotStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoPlacebotStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoPlacebotStore) CreateTemplate(ctx context.Context, tpl models.Template) (models.Template, error) {
	templateId, err := uuid.NewV7()
	if err != nil {
		return models.Template{}, err
	}
	tpl.Id = templateId.String()
	tpl.Created = time.Now().Unix()

	dt, err := templateToDynamo(tpl)
	if err != nil {
		return models.Template{}, err
	}
	dt.Status = "Waiting to be started."
	dt.PixelsRemaining = tpl.Image.TotalPixels()
	dt.TotalPixels = dt.PixelsRemaining

	if _, _, err := ensureItem(dynamoStore, ctx, dt); err != nil {
		return models.Template{}, err
	}
	return tpl, nil
}

func (dynamoStore *DynamoPlacebotStore) GetTemplate(ctx context.Context, id string) (models.Template, error) {
	dt, err := getItem[dynamoTemplate](dynamoStore, ctx, "TEMPLATE#"+id, "DEFINITION", false)
	if err != nil {
		return models.Template{}, err
	}
	return templateFromDynamo(dt)
}

func (dynamoStore *DynamoPlacebotStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	items, err := queryAllByGSIItems[dynamoTemplate](dynamoStore, ctx, itemTypeIndex, "ItemType", itemTypeTemplate)
	if err != nil {
		return nil, err
	}

	templates := make([]models.Template, 0, len(items))
	for _, dt := range items {
		tpl, err := templateFromDynamo(dt)
		if err != nil {
			return nil, fmt.Errorf("template %s is corrupt: %w", dt.Id, err)
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func (dynamoStore *DynamoPlacebotStore) UpdateTemplate(ctx context.Context, tpl models.Template) error {
	dt, err := templateToDynamo(tpl)
	if err != nil {
		return err
	}

	_, err = updateItem(dynamoStore, ctx, dt, []string{
		"Name", "ShareCode", "TileX", "TileY", "PixelX", "PixelY", "UserIds",
		"CanBuyCharges", "CanBuyMaxCharges", "AntiGriefMode", "EraseMode",
		"OutlineMode", "SkipPaintedPixels", "EnableAutostart",
	})
	return err
}

func (dynamoStore *DynamoPlacebotStore) UpdateTemplateProgress(ctx context.Context, id string, status string, pixelsRemaining int, totalPixels int) error {
	dt := dynamoTemplate{
		PK:              "TEMPLATE#" + id,
		SK:              "DEFINITION",
		Status:          status,
		PixelsRemaining: pixelsRemaining,
		TotalPixels:     totalPixels,
	}

	_, err := updateItem(dynamoStore, ctx, dt, []string{"Status", "PixelsRemaining", "TotalPixels"})
	return err
}

func (dynamoStore *DynamoPlacebotStore) DeleteTemplate(ctx context.Context, id string) error {
	return deleteItemWithCondition(dynamoStore, ctx, "TEMPLATE#"+id, "DEFINITION", "", "")
}

func (dynamoStore *DynamoPlacebotStore) UpsertUser(ctx context.Context, user models.User) error {
	// Re-adding an account with fresh cookies is routine, so this is a
	// plain replace.
	return putItem(dynamoStore, ctx, userToDynamo(user))
}

func (dynamoStore *DynamoPlacebotStore) GetUser(ctx context.Context, id string) (models.User, error) {
	du, err := getItem[dynamoAccount](dynamoStore, ctx, "ACCOUNT#"+id, "PROFILE", false)
	if err != nil {
		return models.User{}, err
	}
	return userFromDynamo(du), nil
}

func (dynamoStore *DynamoPlacebotStore) ListUsers(ctx context.Context) ([]models.User, error) {
	items, err := queryAllByGSIItems[dynamoAccount](dynamoStore, ctx, itemTypeIndex, "ItemType", itemTypeAccount)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(items))
	for _, du := range items {
		users = append(users, userFromDynamo(du))
	}
	return users, nil
}

func (dynamoStore *DynamoPlacebotStore) SetUserSuspension(ctx context.Context, id string, suspendedUntil int64) error {
	du := dynamoAccount{
		PK:             "ACCOUNT#" + id,
		SK:             "PROFILE",
		SuspendedUntil: suspendedUntil,
	}

	_, err := updateItem(dynamoStore, ctx, du, []string{"SuspendedUntil"})
	return err
}

func (dynamoStore *DynamoPlacebotStore) DeleteUser(ctx context.Context, id string) error {
	return deleteItemWithCondition(dynamoStore, ctx, "ACCOUNT#"+id, "PROFILE", "", "")
}

func (dynamoStore *DynamoPlacebotStore) GetSettings(ctx context.Context) (settings.Settings, error) {
	ds, err := getItem[dynamoSettings](dynamoStore, ctx, "SETTINGS", "GLOBAL", false)
	if err != nil {
		return settings.Settings{}, err
	}
	return settingsFromDynamo(ds), nil
}

func (dynamoStore *DynamoPlacebotStore) PutSettings(ctx context.Context, s settings.Settings) error {
	return putItem(dynamoStore, ctx, settingsToDynamo(s))
}
