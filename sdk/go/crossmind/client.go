// Package crossmind provides a typed Go client for the CrossMind REST API.
package crossmind

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the CrossMind REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Intent mirrors the structured trading intent returned by the parse endpoint.
type Intent struct {
	Status             string   `json:"status"`
	Action             string   `json:"action,omitempty"`
	FromChain          string   `json:"from_chain,omitempty"`
	ToChain            string   `json:"to_chain,omitempty"`
	FromToken          string   `json:"from_token,omitempty"`
	ToToken            string   `json:"to_token,omitempty"`
	Amount             *float64 `json:"amount,omitempty"`
	Confidence         float64  `json:"confidence"`
	Engine             string   `json:"reasoning_engine"`
	FallbackUsed       bool     `json:"fallback_used"`
	RawMessage         string   `json:"raw_message"`
	Error              string   `json:"error,omitempty"`
	SymbolicConfidence float64  `json:"symbolic_confidence,omitempty"`
	CreatedAt          int64    `json:"created_at"`
}

// Validation reports whether an intent is executable and why not.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Price is a cached oracle price for a single token.
type Price struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Confidence    float64 `json:"confidence"`
	ConfidencePct float64 `json:"confidence_pct"`
	Timestamp     int64   `json:"timestamp"`
}

// Quote describes a simulated swap between two tokens.
type Quote struct {
	QuoteID       string  `json:"quote_id"`
	FromToken     string  `json:"from_token"`
	ToToken       string  `json:"to_token"`
	InputAmount   float64 `json:"input_amount"`
	OutputAmount  float64 `json:"output_amount"`
	ExchangeRate  float64 `json:"exchange_rate"`
	PriceImpact   float64 `json:"price_impact"`
	ConfidencePct float64 `json:"confidence_pct"`
	CreatedAt     int64   `json:"created_at"`
}

// BridgeRecord is the stored state of a single bridge transfer.
type BridgeRecord struct {
	Token            string  `json:"token,omitempty"`
	Recipient        string  `json:"recipient,omitempty"`
	AmountDecimal    float64 `json:"amount_decimal,omitempty"`
	BlockNumber      uint64  `json:"block_number,omitempty"`
	InitiatedAt      int64   `json:"initiated_at,omitempty"`
	CompletionTxHash string  `json:"completion_tx_hash,omitempty"`
	CompletedAt      int64   `json:"completed_at,omitempty"`
}

// BridgeStatus couples a bridge lifecycle state with its record.
type BridgeStatus struct {
	Status string       `json:"status"`
	Data   BridgeRecord `json:"data"`
}

// PollResult summarizes one relayer scan of the source chain.
type PollResult struct {
	CurrentBlock uint64 `json:"current_block"`
	FromBlock    uint64 `json:"from_block"`
	EventsFound  int    `json:"events_found"`
	NewBridges   int    `json:"new_bridges"`
	Completed    int    `json:"completed"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("crossmind api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the CrossMind API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// ParseIntent submits a natural language message and returns the parsed
// intent. The parse endpoint returns the intent object directly rather than
// the common response envelope, including on fallback failures.
func (c *Client) ParseIntent(ctx context.Context, message string) (Intent, error) {
	var intent Intent
	err := c.post(ctx, "/api/v1/parse", map[string]string{"message": message}, &intent)
	return intent, err
}

// ValidateIntent checks whether an intent carries every slot its action needs.
func (c *Client) ValidateIntent(ctx context.Context, intent Intent) (Validation, error) {
	var out envelope[Validation]
	if err := c.post(ctx, "/api/v1/validate", intent, &out); err != nil {
		return Validation{}, err
	}
	return out.Data, nil
}

// TokenPrice fetches the current oracle price for a token symbol.
func (c *Client) TokenPrice(ctx context.Context, symbol string) (Price, error) {
	var out envelope[Price]
	if err := c.get(ctx, "/api/v1/prices/"+url.PathEscape(symbol), &out); err != nil {
		return Price{}, err
	}
	return out.Data, nil
}

// SwapQuote requests a simulated swap quote between two tokens.
func (c *Client) SwapQuote(ctx context.Context, fromToken, toToken string, amount float64) (Quote, error) {
	payload := map[string]any{
		"from_token": fromToken,
		"to_token":   toToken,
		"amount":     amount,
	}
	var out envelope[Quote]
	if err := c.post(ctx, "/api/v1/quote", payload, &out); err != nil {
		return Quote{}, err
	}
	return out.Data, nil
}

// BridgeStatus looks up the lifecycle state of a bridge by source tx hash.
func (c *Client) BridgeStatus(ctx context.Context, txHash string) (BridgeStatus, error) {
	var out envelope[BridgeStatus]
	if err := c.get(ctx, "/api/v1/bridge-status/"+url.PathEscape(txHash), &out); err != nil {
		return BridgeStatus{}, err
	}
	return out.Data, nil
}

// CheckEvents triggers one relayer poll cycle on the server.
func (c *Client) CheckEvents(ctx context.Context) (PollResult, error) {
	var out envelope[PollResult]
	if err := c.post(ctx, "/api/v1/relayer/check-events", struct{}{}, &out); err != nil {
		return PollResult{}, err
	}
	return out.Data, nil
}

type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var failure envelope[json.RawMessage]
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			apiErr.Message = failure.Error
		} else {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		// The parse endpoint returns the full intent on fallback failures;
		// decode it so the caller still sees the preliminary result.
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
