package sharecode_test

import (
	"encoding/base64"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/sharecode"
)

func roundTrip(t *testing.T, img models.Image) {
	t.Helper()
	code, err := sharecode.Encode(img)
	require.NoError(t, err)
	decoded, err := sharecode.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
}

func TestRoundTrip_OnePixel(t *testing.T) {
	roundTrip(t, models.Image{Width: 1, Height: 1, Data: [][]int{{7}}})
}

func TestRoundTrip_AllZero(t *testing.T) {
	data := make([][]int, 20)
	for x := range data {
		data[x] = make([]int, 30)
	}
	roundTrip(t, models.Image{Width: 20, Height: 30, Data: data})
}

func TestRoundTrip_AllColorsAndSentinel(t *testing.T) {
	// One column per ID including -1 and 0
	w := 65
	h := 3
	data := make([][]int, w)
	for x := range data {
		data[x] = make([]int, h)
		for y := range data[x] {
			data[x][y] = x - 1 // -1, 0, 1, ..., 63
		}
	}
	roundTrip(t, models.Image{Width: w, Height: h, Data: data})
}

func TestRoundTrip_Random500x500(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([][]int, 500)
	for x := range data {
		data[x] = make([]int, 500)
		for y := range data[x] {
			data[x][y] = rng.Intn(65) - 1 // -1 .. 63
		}
	}
	roundTrip(t, models.Image{Width: 500, Height: 500, Data: data})
}

func TestEncode_RejectsBadDimensions(t *testing.T) {
	_, err := sharecode.Encode(models.Image{Width: 0, Height: 5})
	assert.Error(t, err)

	_, err = sharecode.Encode(models.Image{Width: 2, Height: 2, Data: [][]int{{1, 2}}})
	assert.Error(t, err)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := sharecode.Decode("not-base64!!!")
	assert.Error(t, err)

	_, err = sharecode.Decode("") // too short for magic
	assert.Error(t, err)

	// Valid base64 but wrong magic
	_, err = sharecode.Decode("AAAA")
	assert.ErrorIs(t, err, sharecode.ErrBadMagic)
}

func TestDecode_RejectsTruncatedRuns(t *testing.T) {
	img := models.Image{Width: 4, Height: 4, Data: [][]int{
		{1, 1, 1, 1}, {2, 2, 2, 2}, {3, 3, 3, 3}, {4, 4, 4, 4},
	}}
	code, err := sharecode.Encode(img)
	require.NoError(t, err)

	_, err = sharecode.Decode(code[:len(code)-2])
	assert.Error(t, err)
}

func TestDecode_RejectsImplausibleDimensions(t *testing.T) {
	// Hand-built header claiming a 2^30 x 2^30 image with zero runs. The
	// decoder must refuse before allocating anything of that size.
	raw := []byte{0x57, 0x54, 0x01}
	raw = binary.AppendUvarint(raw, 1<<30)
	raw = binary.AppendUvarint(raw, 1<<30)
	raw = binary.AppendUvarint(raw, 0)

	_, err := sharecode.Decode(base64.RawURLEncoding.EncodeToString(raw))
	assert.ErrorContains(t, err, "implausible dimensions")

	// Just past the edge cap in one dimension
	raw = []byte{0x57, 0x54, 0x01}
	raw = binary.AppendUvarint(raw, 2001)
	raw = binary.AppendUvarint(raw, 1)
	raw = binary.AppendUvarint(raw, 0)

	_, err = sharecode.Decode(base64.RawURLEncoding.EncodeToString(raw))
	assert.ErrorContains(t, err, "implausible dimensions")
}
