package holiday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://brasilapi.com.br"
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

var ErrUnexpectedResponse = errors.New("holiday: unexpected response")

// BrasilAPI fetches national holidays from BrasilAPI's
// GET /api/feriados/v1/{year}.
type BrasilAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewBrasilAPI returns a fetcher for baseURL. An empty baseURL uses
// DefaultBaseURL; a non-positive timeout uses DefaultTimeout.
func NewBrasilAPI(baseURL string, timeout time.Duration) *BrasilAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrasilAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type brasilAPIHoliday struct {
	Date string `json:"date"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (b *BrasilAPI) Fetch(ctx context.Context, year int) ([]string, error) {
	url := b.baseURL + "/api/feriados/v1/" + strconv.Itoa(year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("%w: holidays for %d are not a list", ErrUnexpectedResponse, year)
	}

	var items []brasilAPIHoliday
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	dates := make([]string, 0, len(items))
	for _, item := range items {
		if item.Date == "" {
			continue
		}
		dates = append(dates, item.Date)
	}
	return dates, nil
}
