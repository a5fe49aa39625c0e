package wplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/palette"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, FilesURL: srv.URL + "/files/s0"})
	require.NoError(t, err)
	c.srvErrBackoff = 10 * time.Millisecond
	// Don't throttle tests
	c.limiter.SetLimit(1e6)
	return c, srv
}

func meHandler(info canvas.UserInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			json.NewEncoder(w).Encode(info)
			return
		}
		http.NotFound(w, r)
	}
}

func TestLogin_Success(t *testing.T) {
	want := canvas.UserInfo{Id: 42, Name: "painter", Charges: canvas.ChargesInfo{Count: 12.7, Max: 100}, Droplets: 900}
	c, _ := newTestClient(t, meHandler(want))

	got, err := c.Login(context.Background(), map[string]string{"j": "cookievalue"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, c.UserInfo())
	assert.Equal(t, models.Charges{Count: 12, Max: 100}, got.Charges.Whole())
}

func TestLogin_SendsCookies(t *testing.T) {
	var gotCookie string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("j"); err == nil {
			gotCookie = cookie.Value
		}
		json.NewEncoder(w).Encode(canvas.UserInfo{Id: 1, Name: "x"})
	}))

	_, err := c.Login(context.Background(), map[string]string{"j": "secret"})
	require.NoError(t, err)
	assert.Equal(t, "secret", gotCookie)
}

func TestLogin_ChallengePage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<!DOCTYPE html><html>checking your browser</html>")
	}))

	_, err := c.Login(context.Background(), nil)
	var netErr *canvas.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestLogin_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"Unauthorized"}`)
	}))

	_, err := c.Login(context.Background(), nil)
	var netErr *canvas.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestLogin_CredentialRejected(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"Account disabled"}`)
	}))

	_, err := c.Login(context.Background(), nil)
	var authErr *canvas.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "Account disabled")
}

func TestLogin_RateLimitedTextBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Error 1015 - You are being rate limited")
	}))

	_, err := c.Login(context.Background(), nil)
	var netErr *canvas.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func paintMux(t *testing.T, paintHandler http.HandlerFunc) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(canvas.UserInfo{Id: 7, Name: "p"})
	})
	mux.HandleFunc("/s0/pixel/", paintHandler)
	return mux
}

func TestPaintBatch_SuccessPatchesTileCache(t *testing.T) {
	var gotBody paintBody
	c, _ := newTestClient(t, paintMux(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprintf(w, `{"painted":%d}`, len(gotBody.Colors))
	}))

	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	key := canvas.TileKey{X: 3, Y: 4}
	c.tiles[key] = &canvas.Tile{Width: 10, Height: 10, Data: blankMatrix(10, 10)}

	painted, err := c.PaintBatch(context.Background(), key, []int{5, 9}, []int{1, 2, 3, 4}, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, painted)
	assert.Equal(t, "tok", gotBody.Token)
	assert.Equal(t, 5, c.tiles[key].Data[1][2])
	assert.Equal(t, 9, c.tiles[key].Data[3][4])
}

func TestPaintBatch_RefreshToken(t *testing.T) {
	c, _ := newTestClient(t, paintMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"refresh"}`)
	}))
	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	_, err = c.PaintBatch(context.Background(), canvas.TileKey{}, []int{1}, []int{0, 0}, "tok")
	assert.ErrorIs(t, err, canvas.ErrRefreshToken)
}

func TestPaintBatch_Suspension(t *testing.T) {
	c, _ := newTestClient(t, paintMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnavailableForLegalReasons)
		fmt.Fprint(w, `{"error":"banned","suspension":"account","durationMs":60000}`)
	}))
	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	_, err = c.PaintBatch(context.Background(), canvas.TileKey{}, []int{1}, []int{0, 0}, "tok")
	var susp *canvas.SuspensionError
	require.ErrorAs(t, err, &susp)
	assert.Equal(t, time.Minute, susp.Duration)
}

func TestPaintBatch_ServerErrorBacksOffAndReturnsZero(t *testing.T) {
	c, _ := newTestClient(t, paintMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}))
	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	painted, err := c.PaintBatch(context.Background(), canvas.TileKey{}, []int{1}, []int{0, 0}, "tok")
	require.NoError(t, err)
	assert.Equal(t, 0, painted)
}

func TestPaintBatch_RateLimited(t *testing.T) {
	c, _ := newTestClient(t, paintMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"Error 1015"}`)
	}))
	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	_, err = c.PaintBatch(context.Background(), canvas.TileKey{}, []int{1}, []int{0, 0}, "tok")
	var netErr *canvas.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestPaintBatch_EmptyBatchIsNoop(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	painted, err := c.PaintBatch(context.Background(), canvas.TileKey{}, nil, nil, "tok")
	require.NoError(t, err)
	assert.Equal(t, 0, painted)
}

func TestBuyProduct(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(canvas.UserInfo{Id: 7, Name: "p"})
	})
	var gotProduct struct {
		Product struct {
			Id     int `json:"id"`
			Amount int `json:"amount"`
		} `json:"product"`
	}
	mux.HandleFunc("/purchase", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotProduct))
		fmt.Fprint(w, `{"success":true}`)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.Login(context.Background(), nil)
	require.NoError(t, err)

	err = c.BuyProduct(context.Background(), canvas.ProductCharges, 3)
	require.NoError(t, err)
	assert.Equal(t, canvas.ProductCharges, gotProduct.Product.Id)
	assert.Equal(t, 3, gotProduct.Product.Amount)
}

func TestLoadTiles_FetchesBoundingBoxAndToleratesMissing(t *testing.T) {
	// 2x2 tile span; tile (1,0) persistently fails, tile (0,1) is 404
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	black, _ := palette.RGBForId(1)
	img.Set(2, 3, color.NRGBA{R: black.R, G: black.G, B: black.B, A: 255})

	mux := http.NewServeMux()
	mux.HandleFunc("/files/s0/tiles/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/s0/tiles/10/20.png", r.URL.Path == "/files/s0/tiles/11/21.png":
			png.Encode(w, img)
		case r.URL.Path == "/files/s0/tiles/11/20.png":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	})

	c, _ := newTestClient(t, mux)
	anchor := models.Anchor{TileX: 10, TileY: 20, PixelX: 900, PixelY: 900}
	require.NoError(t, c.LoadTiles(context.Background(), anchor, 200, 200))

	assert.Len(t, c.Tiles(), 2)
	got := c.Tiles()[canvas.TileKey{X: 10, Y: 20}]
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Data[2][3])
	assert.Equal(t, 0, got.Data[0][0])
	assert.Nil(t, c.Tiles()[canvas.TileKey{X: 11, Y: 20}])
}

func TestDecodeTile_TransparentPixelsAreUnset(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	red, _ := palette.RGBForId(7)
	img.Set(0, 0, color.NRGBA{R: red.R, G: red.G, B: red.B, A: 255})
	img.Set(1, 0, color.NRGBA{R: red.R, G: red.G, B: red.B, A: 128}) // semi-transparent

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tile, err := decodeTile(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 7, tile.Data[0][0])
	assert.Equal(t, 0, tile.Data[1][0])
}

func blankMatrix(w, h int) [][]int {
	m := make([][]int, w)
	for x := range m {
		m[x] = make([]int, h)
	}
	return m
}
