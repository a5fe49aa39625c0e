// Package sharecode implements the compact template share-code transform:
// a run-length-compressed binary layout wrapped in unpadded base64url.
// Decode(Encode(img)) always returns the input unchanged.
package sharecode

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zlnvch/placebot/models"
)

// Layout: magic "WT", version 0x01, then varint width, varint height,
// varint run count, then per run one raw value byte (255 stands for the -1
// clear sentinel) and a varint run length. Runs cover the matrix flattened
// row by row (y-major scan of an x-major matrix).
var magic = []byte{0x57, 0x54, 0x01}

var (
	ErrBadMagic  = errors.New("sharecode: bad magic or version")
	ErrTruncated = errors.New("sharecode: truncated input")
)

// maxEdge bounds decoded dimensions before the matrix is allocated. Codes
// come in over an open HTTP route, so the varints cannot be trusted.
const maxEdge = 2000

// Encode builds the share code for an image.
func Encode(img models.Image) (string, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return "", fmt.Errorf("sharecode: zero dimension %dx%d", img.Width, img.Height)
	}
	if len(img.Data) != img.Width {
		return "", fmt.Errorf("sharecode: matrix width %d, want %d", len(img.Data), img.Width)
	}
	for x := range img.Data {
		if len(img.Data[x]) != img.Height {
			return "", fmt.Errorf("sharecode: column %d height %d, want %d", x, len(img.Data[x]), img.Height)
		}
	}

	out := make([]byte, 0, 3+10+img.Width*img.Height/4)
	out = append(out, magic...)
	out = appendUvarint(out, uint64(img.Width))
	out = appendUvarint(out, uint64(img.Height))

	runs := rleRuns(img)
	out = appendUvarint(out, uint64(len(runs)))
	for _, r := range runs {
		vb := byte(r.value)
		if r.value == -1 {
			vb = 255
		}
		out = append(out, vb)
		out = appendUvarint(out, uint64(r.count))
	}

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decode parses a share code back into an image.
func Decode(code string) (models.Image, error) {
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		// Tolerate padded input from older exports
		raw, err = base64.URLEncoding.DecodeString(code)
		if err != nil {
			return models.Image{}, fmt.Errorf("sharecode: %w", err)
		}
	}

	if len(raw) < 3 || raw[0] != magic[0] || raw[1] != magic[1] || raw[2] != magic[2] {
		return models.Image{}, ErrBadMagic
	}
	i := 3

	w, i, err := readUvarint(raw, i)
	if err != nil {
		return models.Image{}, err
	}
	h, i, err := readUvarint(raw, i)
	if err != nil {
		return models.Image{}, err
	}
	runCount, i, err := readUvarint(raw, i)
	if err != nil {
		return models.Image{}, err
	}
	if w <= 0 || h <= 0 || w > maxEdge || h > maxEdge {
		return models.Image{}, fmt.Errorf("sharecode: implausible dimensions %dx%d", w, h)
	}

	total := w * h
	data := make([][]int, w)
	for x := range data {
		data[x] = make([]int, h)
	}

	// Runs fill in the same y-major scan order Encode used.
	k := 0
	for r := 0; r < runCount; r++ {
		if i >= len(raw) {
			return models.Image{}, ErrTruncated
		}
		v := int(raw[i])
		i++
		if v == 255 {
			v = -1
		}
		var count int
		count, i, err = readUvarint(raw, i)
		if err != nil {
			return models.Image{}, err
		}
		if k+count > total {
			return models.Image{}, fmt.Errorf("sharecode: runs overflow %dx%d matrix", w, h)
		}
		for c := 0; c < count; c++ {
			data[k%w][k/w] = v
			k++
		}
	}
	if k != total {
		return models.Image{}, fmt.Errorf("sharecode: runs cover %d cells, want %d", k, total)
	}

	return models.Image{Width: w, Height: h, Data: data}, nil
}

type run struct {
	value int
	count int
}

func rleRuns(img models.Image) []run {
	var runs []run
	prev := img.Data[0][0]
	count := 0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := img.Data[x][y]
			if v == prev {
				count++
				continue
			}
			runs = append(runs, run{prev, count})
			prev = v
			count = 1
		}
	}
	return append(runs, run{prev, count})
}

func appendUvarint(out []byte, n uint64) []byte {
	for n >= 0x80 {
		out = append(out, byte(n)|0x80)
		n >>= 7
	}
	return append(out, byte(n))
}

func readUvarint(raw []byte, i int) (int, int, error) {
	var n uint64
	var shift uint
	for {
		if i >= len(raw) {
			return 0, i, ErrTruncated
		}
		b := raw[i]
		i++
		n |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 35 {
			return 0, i, errors.New("sharecode: varint too long")
		}
	}
	return int(n), i, nil
}
