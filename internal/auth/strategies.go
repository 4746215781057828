package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/util/prerequisites"
)

// commandRunner executes an external command and returns its stdout.
// Injectable so strategy tests never shell out.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// cachedToken is the on-disk token cache format. Only the token is
// cached, never the session itself.
type cachedToken struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// cachedStrategy reuses a previously cached token when present and not
// expired.
type cachedStrategy struct {
	cfg config.AuthConfig
}

func (s *cachedStrategy) Name() Strategy { return StrategyCachedToken }

func (s *cachedStrategy) Resolve(context.Context) (*Session, error) {
	if !s.cfg.PreferCached {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonNotConfigured, Err: errors.New("cached token reuse disabled")}
	}

	data, err := os.ReadFile(s.cfg.TokenCachePath)
	if err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonNotConfigured, Err: fmt.Errorf("no cached token: %w", err)}
	}

	var cached cachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: fmt.Errorf("corrupt token cache: %w", err)}
	}
	if cached.Token == "" {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: errors.New("token cache is empty")}
	}
	if !cached.ExpiresAt.IsZero() && !time.Now().Before(cached.ExpiresAt) {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: errors.New("cached token expired")}
	}

	return &Session{
		Identity:  cached.Identity,
		Token:     cached.Token,
		Strategy:  StrategyCachedToken,
		ExpiresAt: cached.ExpiresAt,
	}, nil
}

// explicitStrategy performs an OAuth client-credentials grant with the
// configured identity/secret pair.
type explicitStrategy struct {
	cfg  config.AuthConfig
	http *http.Client
}

func (s *explicitStrategy) Name() Strategy { return StrategyExplicitCredential }

func (s *explicitStrategy) Resolve(ctx context.Context) (*Session, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonNotConfigured, Err: errors.New("no client credential pair configured")}
	}
	if s.cfg.TokenURL == "" {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonNotConfigured, Err: errors.New("no token endpoint configured")}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("scope", strings.TrimRight(s.cfg.Resource, "/")+"/.default")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := s.http
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonUnavailable, Err: err}
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK || tokenResp.AccessToken == "" {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: fmt.Errorf("token endpoint returned status %d", resp.StatusCode)}
	}

	sess := &Session{
		Identity: s.cfg.ClientID,
		Token:    tokenResp.AccessToken,
		Strategy: StrategyExplicitCredential,
	}
	if tokenResp.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	return sess, nil
}

// delegatedStrategy exchanges a token through the already-authenticated
// az CLI.
type delegatedStrategy struct {
	cfg  config.AuthConfig
	run  commandRunner
	look func(string) (string, error)
}

func (s *delegatedStrategy) Name() Strategy { return StrategyDelegatedExchange }

func (s *delegatedStrategy) Resolve(ctx context.Context) (*Session, error) {
	if !s.cfg.AllowDelegated {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonNotConfigured, Err: errors.New("delegated exchange disabled")}
	}
	if err := checkAzPresent(s.look); err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonUnavailable, Err: err}
	}

	sess, err := azAccessToken(ctx, s.run, s.cfg.Resource)
	if err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: err}
	}
	sess.Strategy = StrategyDelegatedExchange

	writeTokenCache(s.cfg.TokenCachePath, sess)
	return sess, nil
}

// interactiveStrategy opens a browser login as the last resort. The
// wait is open-ended by default but observes both the configured
// timeout and context cancellation.
type interactiveStrategy struct {
	cfg     config.AuthConfig
	timeout time.Duration
	run     commandRunner
	look    func(string) (string, error)
}

func (s *interactiveStrategy) Name() Strategy { return StrategyInteractiveBrowser }

func (s *interactiveStrategy) Resolve(ctx context.Context) (*Session, error) {
	if !s.cfg.AllowInteractive {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonNotConfigured, Err: errors.New("interactive login disabled")}
	}
	if err := checkAzPresent(s.look); err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonUnavailable, Err: err}
	}

	loginCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		loginCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.run(loginCtx, "az", "login"); err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: fmt.Errorf("az login: %w", err)}
	}

	sess, err := azAccessToken(ctx, s.run, s.cfg.Resource)
	if err != nil {
		return nil, &StrategyError{Strategy: s.Name(), Class: ReasonRejected, Err: err}
	}
	sess.Strategy = StrategyInteractiveBrowser

	writeTokenCache(s.cfg.TokenCachePath, sess)
	return sess, nil
}

func checkAzPresent(look func(string) (string, error)) error {
	for _, tool := range prerequisites.DelegatedAuthTools() {
		if _, err := look(tool.Name); err != nil {
			return fmt.Errorf("%s not found in PATH (install: %s)", tool.Name, tool.InstallURL)
		}
	}
	return nil
}

// azAccessToken obtains a bearer token from the az CLI.
func azAccessToken(ctx context.Context, run commandRunner, resource string) (*Session, error) {
	out, err := run(ctx, "az", "account", "get-access-token", "--resource", resource, "--output", "json")
	if err != nil {
		return nil, fmt.Errorf("az account get-access-token: %w", err)
	}

	var result struct {
		AccessToken  string `json:"accessToken"`
		ExpiresOn    string `json:"expiresOn"`
		Subscription string `json:"subscription"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("decode az token output: %w", err)
	}
	if result.AccessToken == "" {
		return nil, errors.New("az returned an empty access token")
	}

	sess := &Session{
		Identity: result.Subscription,
		Token:    result.AccessToken,
	}
	// az prints a local timestamp; leave expiry unknown if it does not
	// parse, the probe confirms usability either way.
	for _, layout := range []string{"2006-01-02 15:04:05.000000", "2006-01-02 15:04:05", time.RFC3339} {
		if ts, perr := time.ParseInLocation(layout, result.ExpiresOn, time.Local); perr == nil {
			sess.ExpiresAt = ts
			break
		}
	}
	return sess, nil
}

// writeTokenCache persists the token for the CachedToken strategy.
// Failures are ignored: caching is best-effort.
func writeTokenCache(path string, sess *Session) {
	if path == "" {
		return
	}
	data, err := json.Marshal(cachedToken{
		Identity:  sess.Identity,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o600)
}
