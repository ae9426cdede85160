package gasprice

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/octanelabs/bolt/pkg/logger"
)

const stationCacheKey = "fast"

// gasStationResponse is the v2 gas-station JSON. Values are gwei and may be
// fractional.
type gasStationResponse struct {
	Fast struct {
		MaxFeePerGas         json.Number `json:"maxFeePerGas"`
		MaxPriorityFeePerGas json.Number `json:"maxPriorityFeePerGas"`
	} `json:"fast"`
}

// GasStationClient fetches Polygon gas quotes from the public gas-station
// oracle. Responses are cached briefly so a burst of bundle builds doesn't
// hammer the endpoint.
type GasStationClient struct {
	url    string
	http   *resty.Client
	cache  *bigcache.BigCache
	logger logger.Logger
}

func NewGasStationClient(url string, lgr logger.Logger) (*GasStationClient, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(2*time.Second))
	if err != nil {
		return nil, err
	}

	return &GasStationClient{
		url:    url,
		http:   resty.New().SetTimeout(5 * time.Second),
		cache:  cache,
		logger: logger.EnsureLogger(lgr),
	}, nil
}

// FetchFast returns the station's "fast" quote in wei.
func (c *GasStationClient) FetchFast(ctx context.Context) (*GasPrice, error) {
	if cached, err := c.cache.Get(stationCacheKey); err == nil {
		if quote, err := decodeStationQuote(cached); err == nil {
			return quote, nil
		}
	}

	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("gas station request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("gas station returned status %d", resp.StatusCode())
	}

	var parsed gasStationResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("gas station response parse: %w", err)
	}

	maxFee, err := gweiToWei(parsed.Fast.MaxFeePerGas)
	if err != nil {
		return nil, fmt.Errorf("gas station maxFeePerGas: %w", err)
	}
	maxPriority, err := gweiToWei(parsed.Fast.MaxPriorityFeePerGas)
	if err != nil {
		return nil, fmt.Errorf("gas station maxPriorityFeePerGas: %w", err)
	}

	quote := &GasPrice{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriority}
	if err := c.cache.Set(stationCacheKey, encodeStationQuote(quote)); err != nil {
		c.logger.Warnf("failed to cache gas station quote: %v", err)
	}

	return quote, nil
}

// gweiToWei converts a possibly fractional gwei amount to integer wei.
func gweiToWei(raw json.Number) (*big.Int, error) {
	if raw.String() == "" {
		return nil, fmt.Errorf("missing value")
	}

	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return nil, err
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("negative gas price %s", d)
	}

	return d.Mul(decimal.NewFromInt(gwei)).BigInt(), nil
}

func encodeStationQuote(q *GasPrice) []byte {
	return []byte(q.MaxFeePerGas.String() + "|" + q.MaxPriorityFeePerGas.String())
}

func decodeStationQuote(raw []byte) (*GasPrice, error) {
	fields := strings.Split(string(raw), "|")
	if len(fields) != 2 {
		return nil, fmt.Errorf("malformed cached quote")
	}

	maxFee, ok := new(big.Int).SetString(fields[0], 10)
	if !ok {
		return nil, fmt.Errorf("malformed cached quote value %q", fields[0])
	}
	maxPriority, ok := new(big.Int).SetString(fields[1], 10)
	if !ok {
		return nil, fmt.Errorf("malformed cached quote value %q", fields[1])
	}

	return &GasPrice{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriority}, nil
}
