package service

import (
	"errors"

	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/palette"
)

const (
	maxTemplateName = 100
	maxImageEdge    = 2000
)

func ValidateTemplate(tpl models.Template) error {
	if tpl.Name == "" || len(tpl.Name) > maxTemplateName {
		return errors.New("invalid template name")
	}

	if err := ValidateAnchor(tpl.Anchor); err != nil {
		return err
	}

	if err := ValidateImage(tpl.Image); err != nil {
		return err
	}

	if len(tpl.UserIds) == 0 {
		return errors.New("template needs at least one account")
	}
	seen := make(map[string]bool, len(tpl.UserIds))
	for _, id := range tpl.UserIds {
		if id == "" {
			return errors.New("empty account id")
		}
		if seen[id] {
			return errors.New("duplicate account id")
		}
		seen[id] = true
	}

	// Max-charge upgrades consume the droplets that charge purchases need,
	// so the two strategies fight each other when combined.
	if tpl.CanBuyCharges && tpl.CanBuyMaxCharges {
		return errors.New("canBuyCharges and canBuyMaxCharges are mutually exclusive")
	}

	return nil
}

func ValidateAnchor(anchor models.Anchor) error {
	if anchor.TileX < 0 || anchor.TileY < 0 {
		return errors.New("invalid anchor tile")
	}
	if anchor.PixelX < 0 || anchor.PixelX >= models.TileSize ||
		anchor.PixelY < 0 || anchor.PixelY >= models.TileSize {
		return errors.New("anchor pixel out of tile range")
	}
	return nil
}

func ValidateImage(img models.Image) error {
	if img.Width < 1 || img.Height < 1 {
		return errors.New("invalid image dimensions")
	}
	if img.Width > maxImageEdge || img.Height > maxImageEdge {
		return errors.New("image too large")
	}
	if len(img.Data) != img.Width {
		return errors.New("image data does not match width")
	}
	for _, col := range img.Data {
		if len(col) != img.Height {
			return errors.New("image data does not match height")
		}
		for _, c := range col {
			if c == palette.ClearSentinel || c == palette.Transparent {
				continue
			}
			if !palette.IsValidId(c) {
				return errors.New("invalid palette id in image")
			}
		}
	}
	return nil
}

func ValidateUserCookies(cookies map[string]string) error {
	if len(cookies) == 0 {
		return errors.New("no cookies provided")
	}
	// The session cookie is the only one the remote service requires.
	if cookies["j"] == "" {
		return errors.New("missing session cookie")
	}
	return nil
}
