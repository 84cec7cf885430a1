// Package cloud talks to the remote sync endpoint: a single RPC-style action
// dispatcher accepting {action: "save"|"load"} requests. Chunked saves drive
// the same endpoint with an explicit phase per saga step.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gptracker/internal/core"
	"gptracker/internal/remote"
)

const defaultTimeout = 30 * time.Second

// Save phases for the chunked path. A plain save with no phase replaces the
// whole scope in one call.
const (
	phaseClear      = "clear"
	phaseCharacters = "characters"
	phaseMethods    = "methods"
	phaseGoals      = "goals"
	phaseBank       = "bank"
	phaseSettings   = "settings"
)

type Client struct {
	endpoint string
	token    string
	hc       *http.Client
}

var _ remote.Store = (*Client)(nil)

func New(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		hc:       &http.Client{Timeout: defaultTimeout},
	}
}

// request is the dispatcher envelope. Collections are pointers so that a
// phase request carries only its own payload.
type request struct {
	Action      string               `json:"action"`
	Phase       string               `json:"phase,omitempty"`
	BankOnly    bool                 `json:"bankOnly,omitempty"`
	Force       bool                 `json:"force,omitempty"`
	Scope       []string             `json:"scope,omitempty"`
	Characters  []core.Character     `json:"characters,omitempty"`
	Methods     []core.MoneyMethod   `json:"moneyMethods,omitempty"`
	Goals       []core.PurchaseGoal  `json:"purchaseGoals,omitempty"`
	BankItems   []core.BankItem      `json:"bankItems,omitempty"`
	HoursPerDay *float64             `json:"hoursPerDay,omitempty"`
	Data        *core.Dataset        `json:"data,omitempty"`
}

type response struct {
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Saved   *remote.SaveCounts `json:"saved,omitempty"`
	Data    *core.Dataset      `json:"data,omitempty"`
}

func (c *Client) dispatch(ctx context.Context, req request) (*response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, remote.ErrAuth
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", remote.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("dispatcher returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("dispatcher error: %s", out.Error)
	}
	return &out, nil
}

func (c *Client) Load(ctx context.Context) (core.Dataset, error) {
	resp, err := c.dispatch(ctx, request{Action: "load"})
	if err != nil {
		return core.Dataset{}, err
	}
	if resp.Data == nil {
		return core.Dataset{}, nil
	}
	slog.DebugContext(ctx, "Loaded remote dataset", "records", resp.Data.RecordCount())
	return *resp.Data, nil
}

func (c *Client) Save(ctx context.Context, d core.Dataset, scope remote.SaveScope) (remote.SaveCounts, error) {
	resp, err := c.dispatch(ctx, request{
		Action:   "save",
		BankOnly: scope.BankOnly,
		Force:    scope.Force,
		Scope:    scope.Characters,
		Data:     &d,
	})
	if err != nil {
		return remote.SaveCounts{}, err
	}
	if resp.Saved == nil {
		return remote.SaveCounts{}, nil
	}
	return *resp.Saved, nil
}

func (c *Client) Clear(ctx context.Context, scope remote.SaveScope) error {
	_, err := c.dispatch(ctx, request{
		Action:   "save",
		Phase:    phaseClear,
		BankOnly: scope.BankOnly,
		Force:    scope.Force,
		Scope:    scope.Characters,
	})
	return err
}

func (c *Client) InsertCharacters(ctx context.Context, cs []core.Character) (int, error) {
	resp, err := c.dispatch(ctx, request{Action: "save", Phase: phaseCharacters, Characters: cs})
	if err != nil {
		return 0, err
	}
	return countOr(resp, len(cs), func(s remote.SaveCounts) int { return s.Characters }), nil
}

func (c *Client) InsertMethods(ctx context.Context, ms []core.MoneyMethod) (int, error) {
	resp, err := c.dispatch(ctx, request{Action: "save", Phase: phaseMethods, Methods: ms})
	if err != nil {
		return 0, err
	}
	return countOr(resp, len(ms), func(s remote.SaveCounts) int { return s.MoneyMethods }), nil
}

func (c *Client) InsertGoals(ctx context.Context, gs []core.PurchaseGoal) (int, error) {
	resp, err := c.dispatch(ctx, request{Action: "save", Phase: phaseGoals, Goals: gs})
	if err != nil {
		return 0, err
	}
	return countOr(resp, len(gs), func(s remote.SaveCounts) int { return s.PurchaseGoals }), nil
}

func (c *Client) InsertBankItems(ctx context.Context, bs []core.BankItem) (int, error) {
	resp, err := c.dispatch(ctx, request{Action: "save", Phase: phaseBank, BankItems: bs})
	if err != nil {
		return 0, err
	}
	return countOr(resp, len(bs), func(s remote.SaveCounts) int { return s.BankItems }), nil
}

func (c *Client) PutSettings(ctx context.Context, hoursPerDay float64) error {
	_, err := c.dispatch(ctx, request{Action: "save", Phase: phaseSettings, HoursPerDay: &hoursPerDay})
	return err
}

// countOr trusts the dispatcher's confirmed count when present, otherwise
// assumes the full batch landed.
func countOr(resp *response, fallback int, pick func(remote.SaveCounts) int) int {
	if resp.Saved != nil {
		return pick(*resp.Saved)
	}
	return fallback
}
