// Package entropy provides the injectable uniform random sources used by the
// stochastic parts of the simulation (staff training drift).
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float() float64
}

const (
	randomOrgEndpoint = "https://api.random.org/json-rpc/4/invoke"

	batchSize    = 100 // Fractions requested per refill
	lowWaterMark = 10  // Refill when the pool drops below this
	retryBackoff = time.Minute
)

// Client draws true random numbers from random.org through a local pool.
// HR asks for a draw per staffed facility per tick, so after a failed refill
// the client serves crypto/rand until retryBackoff has passed.
// A nil *Client is a valid Source that always uses crypto/rand.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu        sync.Mutex
	pool      []float64
	retryAt   time.Time
	fallbacks int
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Float returns a random float64 in [0, 1).
func (c *Client) Float() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < lowWaterMark && !time.Now().Before(c.retryAt) {
		if err := c.refill(); err != nil {
			c.retryAt = time.Now().Add(retryBackoff)
			slog.Warn("random.org refill failed, using crypto/rand", "error", err, "retry_in", retryBackoff)
		}
	}

	if len(c.pool) == 0 {
		c.fallbacks++
		return cryptoRandFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

// Fallbacks returns how many draws were served by crypto/rand.
func (c *Client) Fallbacks() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallbacks
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type rpcResponse struct {
	Result struct {
		Random struct {
			Data []float64 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) refill() error {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             batchSize,
			"decimalPlaces": 6,
		},
		"id": 1,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var out rpcResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Result.Random.Data) == 0 {
		return errors.New("empty batch")
	}

	c.pool = append(c.pool, out.Result.Random.Data...)
	slog.Debug("random.org pool refilled", "count", len(out.Result.Random.Data), "pool", len(c.pool))
	return nil
}

// cryptoRandFloat builds a uniform float64 in [0, 1) from 53 random bits.
func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}
