package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/service"
)

func TestValidateTemplate_Accepts(t *testing.T) {
	assert.NoError(t, service.ValidateTemplate(validTemplate()))
}

func TestValidateTemplate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Template)
	}{
		{"empty name", func(tpl *models.Template) { tpl.Name = "" }},
		{"name too long", func(tpl *models.Template) { tpl.Name = strings.Repeat("x", 101) }},
		{"negative anchor tile", func(tpl *models.Template) { tpl.Anchor.TileX = -1 }},
		{"anchor pixel out of tile", func(tpl *models.Template) { tpl.Anchor.PixelX = 1000 }},
		{"zero width image", func(tpl *models.Template) { tpl.Image = models.Image{Width: 0, Height: 1} }},
		{"data width mismatch", func(tpl *models.Template) { tpl.Image.Width = 2 }},
		{"data height mismatch", func(tpl *models.Template) { tpl.Image.Height = 2 }},
		{"invalid palette id", func(tpl *models.Template) { tpl.Image.Data[0][0] = 64 }},
		{"no accounts", func(tpl *models.Template) { tpl.UserIds = nil }},
		{"duplicate account", func(tpl *models.Template) { tpl.UserIds = []string{"u1", "u1"} }},
		{"both purchase modes", func(tpl *models.Template) {
			tpl.CanBuyCharges = true
			tpl.CanBuyMaxCharges = true
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := validTemplate()
			tc.mutate(&tpl)
			assert.Error(t, service.ValidateTemplate(tpl))
		})
	}
}

func TestValidateImage_AllowsSentinels(t *testing.T) {
	img := models.Image{
		Width:  3,
		Height: 1,
		Data:   [][]int{{0}, {-1}, {63}},
	}
	assert.NoError(t, service.ValidateImage(img))
}

func TestValidateUserCookies(t *testing.T) {
	assert.Error(t, service.ValidateUserCookies(nil))
	assert.Error(t, service.ValidateUserCookies(map[string]string{"other": "x"}))
	assert.NoError(t, service.ValidateUserCookies(map[string]string{"j": "session"}))
}
