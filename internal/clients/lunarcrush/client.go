package lunarcrush

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/brandsignal/compass/internal/clients"
	"github.com/brandsignal/compass/internal/models"
)

type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lunarcrush returned status: %d", e.StatusCode)
}

// Client talks to a LunarCrush-style trend/news feed. Raw feed items are
// mapped into TrendSignal at this boundary so nothing heterogeneous reaches
// the engine.
type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool
}

type Option func(*Client)

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	defaultConfig := clients.DefaultHTTPExecutorConfig()
	cbConfig := clients.DefaultCircuitBreakerConfig()
	cbConfig.Name = "lunarcrush"
	defaultConfig.CircuitBreaker = clients.NewCircuitBreaker(cbConfig)
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 10 * time.Second, Transport: clients.DefaultTransport()},
		httpExecutor: clients.NewHTTPExecutor(defaultConfig),
		shouldRetry:  defaultConfig.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

func WithHTTPExecutorConfig(cfg clients.HTTPExecutorConfig) Option {
	return func(c *Client) {
		c.httpExecutor = clients.NewHTTPExecutor(cfg)
		c.shouldRetry = cfg.ShouldRetry
	}
}

type newsItem struct {
	ID                 json.Number `json:"id"`
	PostTitle          string      `json:"post_title"`
	PostLink           string      `json:"post_link"`
	CreatorDisplayName string      `json:"creator_display_name"`
	PostSentiment      float64     `json:"post_sentiment"`
	InteractionsTotal  int64       `json:"interactions_total"`
	PostCreated        int64       `json:"post_created"`
}

type newsResponse struct {
	Data []newsItem `json:"data"`
}

// CategoryNews fetches the news feed for a category and maps it into trend
// signals. Relevance is the item's interactions percentile within the
// fetched page, so the same payload always yields the same scores.
func (c *Client) CategoryNews(ctx context.Context, category string, limit int) ([]models.TrendSignal, error) {
	url := fmt.Sprintf("%s/api4/public/category/%s/news/v1", c.baseURL, category)

	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch category news: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var payload newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode category news: %w", err)
	}

	items := payload.Data
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].InteractionsTotal > items[j].InteractionsTotal
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	signals := make([]models.TrendSignal, 0, len(items))
	for i, item := range items {
		signals = append(signals, models.TrendSignal{
			ID:             itemID(item, i),
			Topic:          category,
			Title:          item.PostTitle,
			Source:         item.CreatorDisplayName,
			RelevanceScore: percentileRelevance(i, len(items)),
			Sentiment:      normalizeSentiment(item.PostSentiment),
			Interactions:   item.InteractionsTotal,
			ObservedAt:     time.Unix(item.PostCreated, 0).UTC(),
		})
	}
	return signals, nil
}

func (c *Client) doRequest(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if c.httpExecutor == nil {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return c.client.Do(req)
	}

	return clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
}

func itemID(item newsItem, index int) string {
	if item.ID.String() != "" {
		return item.ID.String()
	}
	return "news-" + strconv.Itoa(index)
}

// percentileRelevance maps a rank within n items onto the 1-100 relevance
// scale, top item highest
func percentileRelevance(rank, n int) int {
	if n <= 1 {
		return 100
	}
	rel := int(math.Round(100 - float64(rank)*99/float64(n-1)))
	if rel < 1 {
		rel = 1
	}
	return rel
}

// normalizeSentiment maps the feed's 1..5 sentiment scale onto -1..1
func normalizeSentiment(s float64) float64 {
	if s == 0 {
		return 0
	}
	v := (s - 3) / 2
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
