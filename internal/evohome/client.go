// Package evohome talks to the Honeywell Total Connect Comfort cloud API
// (the backend behind Evohome installations). It authenticates with the
// public OAuth password grant, resolves the account's first location, and
// exposes typed snapshot and schedule fetches.
package evohome

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sweeney/evohome-monitor/internal/logging"
	"github.com/sweeney/evohome-monitor/internal/logic"
)

const (
	defaultBaseURL = "https://tccna.honeywell.com"

	// Public client credential shared by all third-party TCC integrations.
	basicAuthHeader = "Basic NGEyMzEwODktZDJiNi00MWJkLWE1ZWItMTZhMGE0MjJiOTk5OjFhMTVjZGI4LTQyZGUtNDA3Yi1hZGQwLTA1OWY5MmM1MzBjYg=="
)

// Source provides system snapshots and zone schedules. Implemented by Client
// for the real cloud API and by Fake for tests.
type Source interface {
	FetchSnapshot(ctx context.Context) (logic.SystemSnapshot, error)
	FetchSchedule(ctx context.Context, zoneID string) (logic.WeeklySchedule, error)
}

// Config holds the client settings.
type Config struct {
	Username string
	Password string

	// BaseURL overrides the vendor endpoint. Used by tests.
	BaseURL string

	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration
}

// Client is a Total Connect Comfort API client. The vendor rate-limits
// aggressively, so all requests pass through a shared limiter. Safe for
// concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	locationID   string
}

// NewClient creates a client. No network traffic happens until the first
// fetch.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("evohome: username and password required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		// One request per second sustained, short bursts allowed.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		now:     time.Now,
	}, nil
}

// FetchSnapshot polls the location status and converts it to a snapshot.
// Auth and location discovery happen lazily on the first call and are
// re-done after an authentication failure.
func (c *Client) FetchSnapshot(ctx context.Context) (logic.SystemSnapshot, error) {
	if err := c.ensureSession(ctx); err != nil {
		return logic.SystemSnapshot{}, err
	}

	var status locationStatus
	path := fmt.Sprintf("/WebAPI/emea/api/v1/location/%s/status?includeTemperatureControlSystems=True", c.locationID)
	if err := c.getJSON(ctx, path, &status); err != nil {
		c.resetSession()
		return logic.SystemSnapshot{}, fmt.Errorf("fetch status: %w", err)
	}

	snap := status.toSnapshot(c.now())
	logging.Debug("polled location status", "zones", len(snap.Zones), "mode", snap.SystemMode)
	return snap, nil
}

// FetchSchedule fetches the weekly schedule for one zone.
func (c *Client) FetchSchedule(ctx context.Context, zoneID string) (logic.WeeklySchedule, error) {
	if err := c.ensureSession(ctx); err != nil {
		return logic.WeeklySchedule{}, err
	}

	var sched zoneSchedule
	path := fmt.Sprintf("/WebAPI/emea/api/v1/temperatureZone/%s/schedule", zoneID)
	if err := c.getJSON(ctx, path, &sched); err != nil {
		return logic.WeeklySchedule{}, fmt.Errorf("fetch schedule for zone %s: %w", zoneID, err)
	}
	return sched.toWeekly(), nil
}

// ensureSession authenticates and resolves the first location on demand.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken == "" || c.now().After(c.tokenExpiry) {
		if err := c.authenticate(ctx); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}
	if c.locationID == "" {
		if err := c.discoverLocation(ctx); err != nil {
			return fmt.Errorf("discover location: %w", err)
		}
	}
	return nil
}

// resetSession drops cached auth state so the next call re-authenticates.
// Mirrors the vendor's behavior of invalidating tokens server-side.
func (c *Client) resetSession() {
	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.mu.Unlock()
}

// authenticate performs the OAuth exchange. A valid refresh token is tried
// first; on any failure it falls back to the password grant. Caller holds mu.
func (c *Client) authenticate(ctx context.Context) error {
	if c.refreshToken != "" {
		form := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {c.refreshToken},
			"scope":         {"EMEA-V1-Basic EMEA-V1-Anonymous"},
		}
		if err := c.postToken(ctx, form); err == nil {
			return nil
		}
		logging.Warn("token refresh failed, retrying with password grant")
		c.refreshToken = ""
	}

	form := url.Values{
		"grant_type": {"password"},
		"Username":   {c.cfg.Username},
		"Password":   {c.cfg.Password},
		"scope":      {"EMEA-V1-Basic EMEA-V1-Anonymous"},
	}
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/Auth/OAuth/Token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", basicAuthHeader)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.refreshToken = tok.RefreshToken
	// Refresh a minute early so in-flight requests never race expiry.
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	logging.Info("authenticated with evohome cloud", "expires_in", tok.ExpiresIn)
	return nil
}

// discoverLocation resolves the account's user id and first location.
// Multi-location accounts are out of scope; the first location wins, which
// matches the single-home installs this monitor targets. Caller holds mu.
func (c *Client) discoverLocation(ctx context.Context) error {
	var account userAccount
	if err := c.getJSONLocked(ctx, "/WebAPI/emea/api/v1/userAccount", &account); err != nil {
		return fmt.Errorf("fetch user account: %w", err)
	}

	var locations []installationLocation
	path := fmt.Sprintf("/WebAPI/emea/api/v1/location/installationInfo?userId=%s&includeTemperatureControlSystems=True", account.UserID)
	if err := c.getJSONLocked(ctx, path, &locations); err != nil {
		return fmt.Errorf("fetch installation info: %w", err)
	}
	if len(locations) == 0 {
		return fmt.Errorf("account has no locations")
	}

	c.locationID = locations[0].LocationInfo.LocationID
	logging.Info("resolved evohome location",
		"location", locations[0].LocationInfo.Name, "id", c.locationID)
	return nil
}

// getJSON issues an authenticated GET. Takes mu only to read the token.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	return c.doJSON(ctx, path, token, out)
}

// getJSONLocked is getJSON for callers already holding mu.
func (c *Client) getJSONLocked(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, path, c.accessToken, out)
}

func (c *Client) doJSON(ctx context.Context, path, token string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
