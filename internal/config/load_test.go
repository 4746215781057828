package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
fabric:
  apiEndpoint: https://api.fabric.example.com/v1
  queryEndpoint: https://query.fabric.example.com
auth:
  tenantId: tenant-123
  clientId: client-abc
  allowDelegated: true
topology:
  workspace:
    name: otel-workspace
    databases:
      - name: otel-db
        tables:
          - name: OTELLogs
            columns:
              - name: Timestamp
                type: datetime
              - name: SeverityText
                type: string
          - name: OTELMetrics
            columns:
              - name: Timestamp
                type: datetime
              - name: MetricName
                type: string
report:
  path: report.json
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://api.fabric.example.com/v1", cfg.Fabric.APIEndpoint)
	assert.Equal(t, "otel-workspace", cfg.Topology.Workspace.Name)
	require.Len(t, cfg.Topology.Workspace.Databases, 1)
	db := cfg.Topology.Workspace.Databases[0]
	assert.Equal(t, "otel-db", db.Name)
	require.Len(t, db.Tables, 2)
	assert.Equal(t, "OTELLogs", db.Tables[0].Name)
	assert.Equal(t, "datetime", db.Tables[0].Columns[0].Type)
	assert.True(t, cfg.Auth.AllowDelegated)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Verify.GateThreshold)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, "https://api.fabric.microsoft.com", cfg.Auth.Resource)
	assert.Equal(t,
		"https://login.microsoftonline.com/tenant-123/oauth2/v2.0/token",
		cfg.Auth.TokenURL)
	assert.NotEmpty(t, cfg.Auth.TokenCachePath)
}

func TestLoad_SecretFromEnv(t *testing.T) {
	t.Setenv("FABRIC_CLIENT_SECRET", "env-secret")

	cfg, err := Load([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.ClientSecret)
}

func TestLoad_MissingEndpoint(t *testing.T) {
	_, err := Load([]byte(`
topology:
  workspace:
    name: ws
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fabric.apiEndpoint is required")
}

func TestLoad_TopologySchemaRejectsUnknownField(t *testing.T) {
	_, err := Load([]byte(`
fabric:
  apiEndpoint: https://api.fabric.example.com/v1
topology:
  workspace:
    name: ws
    servers:
      - name: not-a-fabric-thing
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topology validation failed")
}

func TestLoad_TopologySchemaRejectsMissingColumnType(t *testing.T) {
	_, err := Load([]byte(`
fabric:
  apiEndpoint: https://api.fabric.example.com/v1
topology:
  workspace:
    name: ws
    databases:
      - name: db
        tables:
          - name: t
            columns:
              - name: Timestamp
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topology validation failed")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load([]byte("fabric: [unterminated"))
	assert.Error(t, err)
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabrictl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "otel-workspace", cfg.Topology.Workspace.Name)
}

func TestValidate_DuplicateNames(t *testing.T) {
	cfg := &Config{
		Fabric: FabricConfig{APIEndpoint: "https://api"},
		Topology: Topology{Workspace: WorkspaceSpec{
			Name: "ws",
			Databases: []DatabaseSpec{
				{Name: "db", Tables: []TableSpec{{Name: "t"}, {Name: "t"}}},
				{Name: "db"},
			},
		}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate database "db"`)
	assert.Contains(t, err.Error(), `duplicate table "t"`)
}

func TestValidate_UploadNeedsBucket(t *testing.T) {
	cfg := &Config{
		Fabric:   FabricConfig{APIEndpoint: "https://api"},
		Topology: Topology{Workspace: WorkspaceSpec{Name: "ws"}},
		Report:   ReportConfig{Upload: UploadConfig{Enabled: true}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.upload.bucket")
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	timeouts := LoadTimeouts()

	assert.Equal(t, 45*time.Second, timeouts.APICall)
	assert.Equal(t, 15*time.Second, timeouts.Probe)
	assert.Equal(t, 10*time.Second, timeouts.PollInterval)
	assert.Equal(t, 5*time.Minute, timeouts.PollBudget)
	assert.Equal(t, time.Duration(0), timeouts.Interactive)
	assert.Equal(t, 3, timeouts.RetryMaxAttempts)
}

func TestLoadTimeouts_EnvOverride(t *testing.T) {
	t.Setenv("FABRIC_POLL_BUDGET", "90s")
	t.Setenv("FABRIC_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("FABRIC_TIMEOUT_API_CALL", "not-a-duration")

	timeouts := LoadTimeouts()

	assert.Equal(t, 90*time.Second, timeouts.PollBudget)
	assert.Equal(t, 7, timeouts.RetryMaxAttempts)
	assert.Equal(t, 45*time.Second, timeouts.APICall)
}
