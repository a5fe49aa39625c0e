package palette

// The remote canvas uses a fixed 63-color palette. IDs 1-31 are free for
// every account, IDs 32-63 require the matching bit in the account's
// extra-colors bitmap. 0 means unset/transparent, -1 means "clear if
// painted" (never a real canvas color).

const (
	Transparent   = 0
	ClearSentinel = -1

	// FreeColorLimit is the first ID that needs an extra-colors bitmap bit.
	FreeColorLimit = 32

	MaxColorId = 63
)

type RGB struct {
	R, G, B uint8
}

// byId is indexed by colorId-1.
var byId = [MaxColorId]RGB{
	{0, 0, 0},       // 1 Black
	{60, 60, 60},    // 2 Dark Gray
	{120, 120, 120}, // 3 Gray
	{210, 210, 210}, // 4 Light Gray
	{255, 255, 255}, // 5 White
	{96, 0, 24},     // 6 Deep Red
	{237, 28, 36},   // 7 Red
	{255, 127, 39},  // 8 Orange
	{246, 170, 9},   // 9 Gold
	{249, 221, 59},  // 10 Yellow
	{255, 250, 188}, // 11 Light Yellow
	{14, 185, 104},  // 12 Dark Green
	{19, 230, 123},  // 13 Green
	{135, 255, 94},  // 14 Light Green
	{12, 129, 110},  // 15 Dark Teal
	{16, 174, 166},  // 16 Teal
	{19, 225, 210},  // 17 Light Teal
	{40, 80, 158},   // 18 Dark Blue
	{64, 147, 228},  // 19 Blue
	{96, 247, 242},  // 20 Cyan
	{107, 80, 246},  // 21 Indigo
	{153, 177, 251}, // 22 Light Indigo
	{120, 12, 153},  // 23 Dark Purple
	{170, 56, 185},  // 24 Purple
	{224, 159, 249}, // 25 Light Purple
	{203, 0, 122},   // 26 Dark Pink
	{236, 31, 128},  // 27 Pink
	{243, 141, 169}, // 28 Light Pink
	{104, 70, 52},   // 29 Dark Brown
	{149, 104, 42},  // 30 Brown
	{248, 178, 119}, // 31 Beige
	{170, 170, 170}, // 32 Medium Gray
	{165, 14, 30},   // 33 Dark Red
	{250, 128, 114}, // 34 Light Red
	{228, 92, 26},   // 35 Dark Orange
	{214, 181, 148}, // 36 Light Tan
	{156, 132, 49},  // 37 Dark Goldenrod
	{197, 173, 49},  // 38 Goldenrod
	{232, 212, 95},  // 39 Light Goldenrod
	{74, 107, 58},   // 40 Dark Olive
	{90, 148, 74},   // 41 Olive
	{132, 197, 115}, // 42 Light Olive
	{15, 121, 159},  // 43 Dark Cyan
	{187, 250, 242}, // 44 Light Cyan
	{125, 199, 255}, // 45 Light Blue
	{77, 49, 184},   // 46 Dark Indigo
	{74, 66, 132},   // 47 Dark Slate Blue
	{122, 113, 196}, // 48 Slate Blue
	{181, 174, 241}, // 49 Light Slate Blue
	{155, 82, 73},   // 50 Dark Peach
	{209, 128, 120}, // 51 Peach
	{250, 182, 164}, // 52 Light Peach
	{219, 164, 99},  // 53 Light Brown
	{123, 99, 82},   // 54 Dark Tan
	{156, 132, 107}, // 55 Tan
	{214, 207, 154}, // 56 Light Tan 2
	{209, 128, 81},  // 57 Dark Beige
	{255, 197, 165}, // 58 Light Beige
	{109, 100, 63},  // 59 Dark Stone
	{148, 140, 107}, // 60 Stone
	{205, 197, 158}, // 61 Light Stone
	{51, 57, 65},    // 62 Dark Slate
	{109, 117, 141}, // 63 Slate
}

var idByRGB = func() map[RGB]int {
	m := make(map[RGB]int, MaxColorId)
	for i, rgb := range byId {
		m[rgb] = i + 1
	}
	return m
}()

// IdForRGB maps a fully-opaque pixel's RGB triple to its palette ID.
// Unknown colors map to Transparent, same as the remote canvas treating
// them as background.
func IdForRGB(r, g, b uint8) int {
	return idByRGB[RGB{r, g, b}]
}

// RGBForId returns the RGB triple for a real palette ID.
func RGBForId(id int) (RGB, bool) {
	if id < 1 || id > MaxColorId {
		return RGB{}, false
	}
	return byId[id-1], true
}

// IsValidId reports whether id may appear in a template image.
func IsValidId(id int) bool {
	return id == Transparent || id == ClearSentinel || (id >= 1 && id <= MaxColorId)
}

// HasColor reports whether an account with the given extra-colors bitmap
// may paint colorId. Free colors are always permitted.
func HasColor(colorId int, extraColorsBitmap uint32) bool {
	if colorId < FreeColorLimit {
		return true
	}
	return extraColorsBitmap&(1<<(colorId-FreeColorLimit)) != 0
}

// Sanitize clamps every cell of a matrix to a valid palette ID, mapping
// anything out of range to Transparent. Used when importing templates from
// untrusted share codes or API payloads.
func Sanitize(data [][]int) {
	for _, col := range data {
		for i, c := range col {
			if !IsValidId(c) {
				col[i] = Transparent
			}
		}
	}
}
