package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPSource reads scores from the agent-identity registry's REST API.
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPSource creates a source with optional proxy support.
func NewHTTPSource(baseURL, apiKey, proxyURL string) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

// registryScore is the expected JSON shape from the registry.
type registryScore struct {
	AgentID uint64  `json:"agent_id"`
	Score   float64 `json:"score"`
}

func (s *HTTPSource) Scores(ctx context.Context, ids []uint64) (map[uint64]float64, error) {
	out := make(map[uint64]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	endpoint := fmt.Sprintf("%s/api/v1/reputation?ids=%s", s.BaseURL, url.QueryEscape(strings.Join(parts, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch reputation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch reputation: status %d, body: %s", resp.StatusCode, string(body))
	}
	var rows []registryScore
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode reputation: %w", err)
	}

	wanted := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for _, r := range rows {
		if wanted[r.AgentID] {
			out[r.AgentID] = r.Score
		}
	}
	return out, nil
}

// Fallback queries primary and answers from secondary when primary fails.
type Fallback struct {
	Primary   Source
	Secondary Source
	Log       *zap.Logger
}

func (f *Fallback) Scores(ctx context.Context, ids []uint64) (map[uint64]float64, error) {
	scores, err := f.Primary.Scores(ctx, ids)
	if err == nil {
		return scores, nil
	}
	if f.Log != nil {
		f.Log.Warn("reputation registry unavailable, using fallback", zap.Error(err))
	}
	return f.Secondary.Scores(ctx, ids)
}
