package dynamo

import (
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/settings"
	"github.com/zlnvch/placebot/sharecode"
)

// Item type markers, also the GSI_ItemType partition keys for listing.
const (
	itemTypeTemplate = "TEMPLATE"
	itemTypeAccount  = "ACCOUNT"
	itemTypeSettings = "SETTINGS"
)

type dynamoTemplate struct {
	PK                string   `dynamodbav:"PK"`
	SK                string   `dynamodbav:"SK"`
	ItemType          string   `dynamodbav:"ItemType"`
	Id                string   `dynamodbav:"Id"`
	Name              string   `dynamodbav:"Name"`
	ShareCode         string   `dynamodbav:"ShareCode"`
	TileX             int      `dynamodbav:"TileX"`
	TileY             int      `dynamodbav:"TileY"`
	PixelX            int      `dynamodbav:"PixelX"`
	PixelY            int      `dynamodbav:"PixelY"`
	UserIds           []string `dynamodbav:"UserIds"`
	CanBuyCharges     bool     `dynamodbav:"CanBuyCharges"`
	CanBuyMaxCharges  bool     `dynamodbav:"CanBuyMaxCharges"`
	AntiGriefMode     bool     `dynamodbav:"AntiGriefMode"`
	EraseMode         bool     `dynamodbav:"EraseMode"`
	OutlineMode       bool     `dynamodbav:"OutlineMode"`
	SkipPaintedPixels bool     `dynamodbav:"SkipPaintedPixels"`
	EnableAutostart   bool     `dynamodbav:"EnableAutostart"`
	Created           int64    `dynamodbav:"Created"`
	Status            string   `dynamodbav:"Status"`
	PixelsRemaining   int      `dynamodbav:"PixelsRemaining"`
	TotalPixels       int      `dynamodbav:"TotalPixels"`
}

// Map domain Template -> Dynamo. The image matrix is persisted as its
// share code, which compresses well and round-trips losslessly.
func templateToDynamo(t models.Template) (dynamoTemplate, error) {
	code, err := sharecode.Encode(t.Image)
	if err != nil {
		return dynamoTemplate{}, err
	}

	return dynamoTemplate{
		PK:                "TEMPLATE#" + t.Id,
		SK:                "DEFINITION",
		ItemType:          itemTypeTemplate,
		Id:                t.Id,
		Name:              t.Name,
		ShareCode:         code,
		TileX:             t.Anchor.TileX,
		TileY:             t.Anchor.TileY,
		PixelX:            t.Anchor.PixelX,
		PixelY:            t.Anchor.PixelY,
		UserIds:           t.UserIds,
		CanBuyCharges:     t.CanBuyCharges,
		CanBuyMaxCharges:  t.CanBuyMaxCharges,
		AntiGriefMode:     t.AntiGriefMode,
		EraseMode:         t.EraseMode,
		OutlineMode:       t.OutlineMode,
		SkipPaintedPixels: t.SkipPaintedPixels,
		EnableAutostart:   t.EnableAutostart,
		Created:           t.Created,
	}, nil
}

// Map Dynamo -> domain Template
func templateFromDynamo(dt dynamoTemplate) (models.Template, error) {
	img, err := sharecode.Decode(dt.ShareCode)
	if err != nil {
		return models.Template{}, err
	}

	return models.Template{
		Id:    dt.Id,
		Name:  dt.Name,
		Image: img,
		Anchor: models.Anchor{
			TileX:  dt.TileX,
			TileY:  dt.TileY,
			PixelX: dt.PixelX,
			PixelY: dt.PixelY,
		},
		UserIds:           dt.UserIds,
		CanBuyCharges:     dt.CanBuyCharges,
		CanBuyMaxCharges:  dt.CanBuyMaxCharges,
		AntiGriefMode:     dt.AntiGriefMode,
		EraseMode:         dt.EraseMode,
		OutlineMode:       dt.OutlineMode,
		SkipPaintedPixels: dt.SkipPaintedPixels,
		EnableAutostart:   dt.EnableAutostart,
		Created:           dt.Created,
	}, nil
}

type dynamoAccount struct {
	PK             string            `dynamodbav:"PK"`
	SK             string            `dynamodbav:"SK"`
	ItemType       string            `dynamodbav:"ItemType"`
	Id             string            `dynamodbav:"Id"`
	Name           string            `dynamodbav:"Name"`
	Cookies        map[string]string `dynamodbav:"Cookies"`
	ExpirationDate int64             `dynamodbav:"ExpirationDate"`
	SuspendedUntil int64             `dynamodbav:"SuspendedUntil"`
}

// Map domain User -> Dynamo
func userToDynamo(u models.User) dynamoAccount {
	return dynamoAccount{
		PK:             "ACCOUNT#" + u.Id,
		SK:             "PROFILE",
		ItemType:       itemTypeAccount,
		Id:             u.Id,
		Name:           u.Name,
		Cookies:        u.Cookies,
		ExpirationDate: u.ExpirationDate,
		SuspendedUntil: u.SuspendedUntil,
	}
}

// Map Dynamo -> domain User
func userFromDynamo(du dynamoAccount) models.User {
	return models.User{
		Id:             du.Id,
		Name:           du.Name,
		Cookies:        du.Cookies,
		ExpirationDate: du.ExpirationDate,
		SuspendedUntil: du.SuspendedUntil,
	}
}

type dynamoSettings struct {
	PK               string  `dynamodbav:"PK"`
	SK               string  `dynamodbav:"SK"`
	ItemType         string  `dynamodbav:"ItemType"`
	AccountCooldown  int     `dynamodbav:"AccountCooldown"`
	PurchaseCooldown int     `dynamodbav:"PurchaseCooldown"`
	AntiGriefStandby int     `dynamodbav:"AntiGriefStandby"`
	DrawingDirection string  `dynamodbav:"DrawingDirection"`
	DrawingOrder     string  `dynamodbav:"DrawingOrder"`
	ChargeThreshold  float64 `dynamodbav:"ChargeThreshold"`
	PixelSkip        int     `dynamodbav:"PixelSkip"`
	DropletReserve   int     `dynamodbav:"DropletReserve"`
}

func settingsToDynamo(s settings.Settings) dynamoSettings {
	return dynamoSettings{
		PK:               "SETTINGS",
		SK:               "GLOBAL",
		ItemType:         itemTypeSettings,
		AccountCooldown:  s.AccountCooldown,
		PurchaseCooldown: s.PurchaseCooldown,
		AntiGriefStandby: s.AntiGriefStandby,
		DrawingDirection: s.DrawingDirection,
		DrawingOrder:     s.DrawingOrder,
		ChargeThreshold:  s.ChargeThreshold,
		PixelSkip:        s.PixelSkip,
		DropletReserve:   s.DropletReserve,
	}
}

func settingsFromDynamo(ds dynamoSettings) settings.Settings {
	return settings.Settings{
		AccountCooldown:  ds.AccountCooldown,
		PurchaseCooldown: ds.PurchaseCooldown,
		AntiGriefStandby: ds.AntiGriefStandby,
		DrawingDirection: ds.DrawingDirection,
		DrawingOrder:     ds.DrawingOrder,
		ChargeThreshold:  ds.ChargeThreshold,
		PixelSkip:        ds.PixelSkip,
		DropletReserve:   ds.DropletReserve,
	}
}
