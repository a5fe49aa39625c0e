// Package wplace is the HTTP implementation of canvas.Client against the
// wplace.live backend.
package wplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/zlnvch/placebot/canvas"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://backend.wplace.live"
	DefaultFilesURL = "https://backend.wplace.live/files/s0"

	requestTimeout = 30 * time.Second

	// The remote edge tolerates roughly one write per second per session;
	// going faster just converts requests into 429s.
	writesPerSecond = 1
	writeBurst      = 2
)

// Options configures a client. The zero value targets production wplace.
type Options struct {
	BaseURL  string
	FilesURL string
	// ProxyURL routes all traffic through an HTTP/SOCKS proxy when set.
	ProxyURL string
	// Pawtect returns the current browser-computed integrity token, or ""
	// when none has been captured yet. Sent as a header on every POST.
	Pawtect func() string
	// Fingerprint is attached to paint bodies when non-empty.
	Fingerprint func() string
}

type Client struct {
	baseURL     string
	filesURL    string
	httpClient  *http.Client
	limiter     *rate.Limiter
	pawtect     func() string
	fingerprint func() string
	userInfo    canvas.UserInfo
	tiles       map[canvas.TileKey]*canvas.Tile

	// srvErrBackoff is how long PaintBatch sits out a remote 500.
	srvErrBackoff time.Duration
}

var _ canvas.Client = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	filesURL := opts.FilesURL
	if filesURL == "" {
		filesURL = DefaultFilesURL
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		baseURL:  baseURL,
		filesURL: filesURL,
		httpClient: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   requestTimeout,
		},
		limiter:       rate.NewLimiter(rate.Limit(writesPerSecond), writeBurst),
		pawtect:       opts.Pawtect,
		fingerprint:   opts.Fingerprint,
		tiles:         make(map[canvas.TileKey]*canvas.Tile),
		srvErrBackoff: 40 * time.Second,
	}, nil
}

// Login installs the account's cookies and performs a self-identity read.
func (c *Client) Login(ctx context.Context, cookies map[string]string) (canvas.UserInfo, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return canvas.UserInfo{}, err
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for k, v := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{Name: k, Value: v, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(base, httpCookies)

	return c.RefreshUserInfo(ctx)
}

// RefreshUserInfo re-reads /me and classifies the response.
func (c *Client) RefreshUserInfo(ctx context.Context) (canvas.UserInfo, error) {
	body, _, err := c.get(ctx, c.baseURL+"/me")
	if err != nil {
		return canvas.UserInfo{}, &canvas.NetworkError{Reason: err.Error()}
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<!DOCTYPE html>") {
		return canvas.UserInfo{}, &canvas.NetworkError{Reason: "challenge page interruption detected"}
	}

	var envelope struct {
		canvas.UserInfo
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Not JSON at all; the edge layer sometimes replies with bare
		// rate-limit or gateway error pages.
		if strings.Contains(trimmed, "Error 1015") {
			return canvas.UserInfo{}, &canvas.NetworkError{Reason: "(1015) rate-limited"}
		}
		if strings.Contains(trimmed, "502") && strings.Contains(trimmed, "gateway") {
			return canvas.UserInfo{}, &canvas.NetworkError{Reason: "(502) bad gateway"}
		}
		return canvas.UserInfo{}, fmt.Errorf("unparseable /me response: %q", truncate(trimmed, 150))
	}

	switch {
	case envelope.Error == "Unauthorized":
		return canvas.UserInfo{}, &canvas.NetworkError{Reason: "(401) unauthorized: cookie invalid or IP rate-limited"}
	case envelope.Error != "":
		return canvas.UserInfo{}, &canvas.AuthError{Reason: envelope.Error}
	case envelope.Id != 0 && envelope.Name != "":
		c.userInfo = envelope.UserInfo
		return c.userInfo, nil
	default:
		return canvas.UserInfo{}, fmt.Errorf("unexpected /me response: %q", truncate(trimmed, 150))
	}
}

func (c *Client) UserInfo() canvas.UserInfo {
	return c.userInfo
}

func (c *Client) Tiles() map[canvas.TileKey]*canvas.Tile {
	return c.tiles
}

type paintBody struct {
	Colors      []int  `json:"colors"`
	Coords      []int  `json:"coords"`
	Token       string `json:"t"`
	Fingerprint string `json:"fp,omitempty"`
}

type paintResponse struct {
	Painted    int    `json:"painted"`
	Error      string `json:"error"`
	Suspension string `json:"suspension"`
	DurationMs int64  `json:"durationMs"`
}

// PaintBatch submits up to len(colors) pixels within one tile.
func (c *Client) PaintBatch(ctx context.Context, tile canvas.TileKey, colors []int, coords []int, token string) (int, error) {
	if len(colors) == 0 {
		return 0, nil
	}
	if len(coords) != len(colors)*2 {
		return 0, fmt.Errorf("coords length %d does not match %d colors", len(coords), len(colors))
	}

	body := paintBody{Colors: colors, Coords: coords, Token: token}
	if c.fingerprint != nil {
		body.Fingerprint = c.fingerprint()
	}

	status, respBytes, err := c.post(ctx, fmt.Sprintf("%s/s0/pixel/%d/%d", c.baseURL, tile.X, tile.Y), body)
	if err != nil {
		return 0, &canvas.NetworkError{Reason: err.Error()}
	}

	var resp paintResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return 0, fmt.Errorf("unparseable paint response for tile %s: %q", tile, truncate(string(respBytes), 150))
	}

	if resp.Painted == len(colors) {
		log.Printf("[%d] %s 🎨 Painted %d px at %s.", c.userInfo.Id, c.userInfo.Name, resp.Painted, tile)
		c.patchTile(tile, colors, coords)
		return resp.Painted, nil
	}

	switch {
	case status == http.StatusUnauthorized && resp.Error == "Unauthorized":
		return 0, &canvas.NetworkError{Reason: "(401) unauthorized during paint"}
	case status == http.StatusForbidden && (resp.Error == "refresh" || resp.Error == "Unauthorized"):
		return 0, canvas.ErrRefreshToken
	case status == http.StatusUnavailableForLegalReasons && resp.Suspension != "":
		return 0, &canvas.SuspensionError{Duration: time.Duration(resp.DurationMs) * time.Millisecond}
	case status == http.StatusInternalServerError:
		log.Printf("[%d] %s ⏱️ Server error (500) on tile %s, waiting %s.", c.userInfo.Id, c.userInfo.Name, tile, c.srvErrBackoff)
		select {
		case <-time.After(c.srvErrBackoff):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return 0, nil
	case status == http.StatusTooManyRequests || strings.Contains(resp.Error, "Error 1015"):
		return 0, &canvas.NetworkError{Reason: "(1015) rate-limited"}
	}

	return 0, fmt.Errorf("unexpected paint response for tile %s: status %d %q", tile, status, truncate(string(respBytes), 150))
}

// patchTile writes the just-painted colors into the cached tile so later
// mismatch checks within the same cycle stay consistent without a re-fetch.
func (c *Client) patchTile(tile canvas.TileKey, colors []int, coords []int) {
	t, ok := c.tiles[tile]
	if !ok {
		return
	}
	for i, color := range colors {
		px, py := coords[i*2], coords[i*2+1]
		if px >= 0 && px < t.Width && py >= 0 && py < t.Height {
			t.Data[px][py] = color
		}
	}
}

type purchaseResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// BuyProduct submits a droplet-shop purchase.
func (c *Client) BuyProduct(ctx context.Context, productId int, amount int) error {
	body := map[string]any{"product": map[string]int{"id": productId, "amount": amount}}
	status, respBytes, err := c.post(ctx, c.baseURL+"/purchase", body)
	if err != nil {
		return &canvas.NetworkError{Reason: err.Error()}
	}

	var resp purchaseResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return fmt.Errorf("unparseable purchase response: %q", truncate(string(respBytes), 150))
	}

	if resp.Success {
		switch productId {
		case canvas.ProductCharges:
			log.Printf("[%d] %s 💰 Bought %d pixels for %d droplets.", c.userInfo.Id, c.userInfo.Name, amount*canvas.ChargesPerUnit, amount*canvas.DropletsPerUnit)
		case canvas.ProductMaxChargeUpgrade:
			log.Printf("[%d] %s 💰 Bought %d max charge(s) for %d droplets.", c.userInfo.Id, c.userInfo.Name, amount, amount*canvas.DropletsPerUnit)
		default:
			log.Printf("[%d] %s 💰 Purchase ok: product #%d amount %d.", c.userInfo.Id, c.userInfo.Name, productId, amount)
		}
		return nil
	}

	if status == http.StatusTooManyRequests || strings.Contains(resp.Error, "Error 1015") {
		return &canvas.NetworkError{Reason: "(1015) rate-limited during purchase"}
	}
	return fmt.Errorf("unexpected purchase response: status %d %q", status, truncate(string(respBytes), 150))
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) post(ctx context.Context, rawURL string, body any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	req.Header.Set("Referer", "https://wplace.live/")
	if c.pawtect != nil {
		if tok := c.pawtect(); tok != "" {
			req.Header.Set("x-pawtect-token", tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBytes, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
