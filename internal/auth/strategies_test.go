package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
)

func writeCacheFile(t *testing.T, cached cachedToken) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCachedStrategy_Disabled(t *testing.T) {
	s := &cachedStrategy{cfg: config.AuthConfig{PreferCached: false}}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonNotConfigured, se.Class)
}

func TestCachedStrategy_ValidToken(t *testing.T) {
	path := writeCacheFile(t, cachedToken{
		Identity:  "sub-1",
		Token:     "cached-token",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	s := &cachedStrategy{cfg: config.AuthConfig{PreferCached: true, TokenCachePath: path}}

	sess, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyCachedToken, sess.Strategy)
	assert.Equal(t, "cached-token", sess.Token)
	assert.Equal(t, "sub-1", sess.Identity)
}

func TestCachedStrategy_ExpiredToken(t *testing.T) {
	path := writeCacheFile(t, cachedToken{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	s := &cachedStrategy{cfg: config.AuthConfig{PreferCached: true, TokenCachePath: path}}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonRejected, se.Class)
}

func TestCachedStrategy_MissingFile(t *testing.T) {
	s := &cachedStrategy{cfg: config.AuthConfig{
		PreferCached:   true,
		TokenCachePath: filepath.Join(t.TempDir(), "nope.json"),
	}}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonNotConfigured, se.Class)
}

func TestExplicitStrategy_NotConfigured(t *testing.T) {
	s := &explicitStrategy{cfg: config.AuthConfig{}}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonNotConfigured, se.Class)
}

func TestExplicitStrategy_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client-abc", r.Form.Get("client_id"))
		assert.Equal(t, "https://api.fabric.microsoft.com/.default", r.Form.Get("scope"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(server.Close)

	s := &explicitStrategy{cfg: config.AuthConfig{
		ClientID:     "client-abc",
		ClientSecret: "secret",
		TokenURL:     server.URL,
		Resource:     "https://api.fabric.microsoft.com",
	}}

	sess, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyExplicitCredential, sess.Strategy)
	assert.Equal(t, "fresh-token", sess.Token)
	assert.Equal(t, "client-abc", sess.Identity)
	assert.False(t, sess.ExpiresAt.IsZero())
}

func TestExplicitStrategy_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
	}))
	t.Cleanup(server.Close)

	s := &explicitStrategy{cfg: config.AuthConfig{
		ClientID:     "client-abc",
		ClientSecret: "wrong",
		TokenURL:     server.URL,
		Resource:     "https://api.fabric.microsoft.com",
	}}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonRejected, se.Class)
}

const azTokenJSON = `{
  "accessToken": "az-token",
  "expiresOn": "2030-01-02 15:04:05.000000",
  "subscription": "sub-42"
}`

func TestDelegatedStrategy_Success(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache", "token.json")
	var gotArgs []string
	s := &delegatedStrategy{
		cfg: config.AuthConfig{
			AllowDelegated: true,
			Resource:       "https://api.fabric.microsoft.com",
			TokenCachePath: cachePath,
		},
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotArgs = append([]string{name}, args...)
			return []byte(azTokenJSON), nil
		},
		look: func(string) (string, error) { return "/usr/bin/az", nil },
	}

	sess, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyDelegatedExchange, sess.Strategy)
	assert.Equal(t, "az-token", sess.Token)
	assert.Equal(t, "sub-42", sess.Identity)
	assert.Contains(t, gotArgs, "get-access-token")

	// Success populates the token cache for the next run.
	data, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	var cached cachedToken
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.Equal(t, "az-token", cached.Token)
}

func TestDelegatedStrategy_AzMissing(t *testing.T) {
	s := &delegatedStrategy{
		cfg:  config.AuthConfig{AllowDelegated: true},
		run:  func(context.Context, string, ...string) ([]byte, error) { t.Fatal("should not run"); return nil, nil },
		look: func(string) (string, error) { return "", errors.New("not found") },
	}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonUnavailable, se.Class)
}

func TestDelegatedStrategy_CommandFails(t *testing.T) {
	s := &delegatedStrategy{
		cfg: config.AuthConfig{AllowDelegated: true},
		run: func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("Please run 'az login'")
		},
		look: func(string) (string, error) { return "/usr/bin/az", nil },
	}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonRejected, se.Class)
}

func TestInteractiveStrategy_Disabled(t *testing.T) {
	s := &interactiveStrategy{cfg: config.AuthConfig{}}

	_, err := s.Resolve(context.Background())
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonNotConfigured, se.Class)
}

func TestInteractiveStrategy_LoginThenToken(t *testing.T) {
	var commands [][]string
	s := &interactiveStrategy{
		cfg: config.AuthConfig{
			AllowInteractive: true,
			Resource:         "https://api.fabric.microsoft.com",
		},
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			commands = append(commands, append([]string{name}, args...))
			if len(args) > 0 && args[0] == "login" {
				return []byte("{}"), nil
			}
			return []byte(azTokenJSON), nil
		},
		look: func(string) (string, error) { return "/usr/bin/az", nil },
	}

	sess, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyInteractiveBrowser, sess.Strategy)
	require.Len(t, commands, 2)
	assert.Equal(t, []string{"az", "login"}, commands[0])
}

func TestInteractiveStrategy_CancelledLogin(t *testing.T) {
	s := &interactiveStrategy{
		cfg: config.AuthConfig{AllowInteractive: true},
		run: func(ctx context.Context, _ string, args ...string) ([]byte, error) {
			if args[0] == "login" {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []byte(azTokenJSON), nil
		},
		look: func(string) (string, error) { return "/usr/bin/az", nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Resolve(ctx)
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonRejected, se.Class)
}

func TestAzAccessToken_UnparseableExpiryLeavesZero(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"accessToken":"tok","expiresOn":"whenever"}`), nil
	}

	sess, err := azAccessToken(context.Background(), run, "https://r")
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.IsZero())
}
