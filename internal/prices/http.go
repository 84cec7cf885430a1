package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gptracker/internal/core"
)

const userAgent = "gptracker price sync"

// HTTPSource talks to the public market-price and hiscore endpoints. The
// price endpoint returns a single document with a quote per item id, so one
// request covers any number of ids.
type HTTPSource struct {
	priceURL string
	statsURL string
	hc       *http.Client
}

func NewHTTPSource(priceURL, statsURL string) *HTTPSource {
	return &HTTPSource{
		priceURL: priceURL,
		statsURL: statsURL,
		hc:       &http.Client{Timeout: 15 * time.Second},
	}
}

type latestResponse struct {
	Data map[string]Quote `json:"data"`
}

func (s *HTTPSource) Quotes(ctx context.Context, ids []int64) (map[int64]Quote, error) {
	if len(ids) == 0 {
		return map[int64]Quote{}, nil
	}

	var doc latestResponse
	if err := s.getJSON(ctx, s.priceURL, &doc); err != nil {
		return nil, fmt.Errorf("fetch price document: %w", err)
	}

	quotes := make(map[int64]Quote, len(ids))
	for _, id := range ids {
		if q, ok := doc.Data[strconv.FormatInt(id, 10)]; ok {
			quotes[id] = q
		}
	}
	return quotes, nil
}

type statsResponse struct {
	CombatLevel int    `json:"combatLevel"`
	TotalLevel  int    `json:"totalLevel"`
	AccountType string `json:"accountType"`
}

func (s *HTTPSource) Lookup(ctx context.Context, name string) (Stats, error) {
	u := s.statsURL + "?name=" + url.QueryEscape(name)

	var doc statsResponse
	if err := s.getJSON(ctx, u, &doc); err != nil {
		return Stats{}, fmt.Errorf("fetch stats for %q: %w", name, err)
	}

	stats := Stats{
		CombatLevel: core.ClampInt(doc.CombatLevel, core.MinCombatLevel, core.MaxCombatLevel),
		TotalLevel:  core.ClampInt(doc.TotalLevel, core.MinTotalLevel, core.MaxTotalLevel),
		AccountType: core.AccountType(doc.AccountType),
	}
	if !core.ValidAccountType(stats.AccountType) {
		stats.AccountType = core.AccountMain
	}
	return stats, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCharacterNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
