package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/auth"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/util/prerequisites"
)

// saveAndRestoreFactories snapshots every factory variable and restores
// it when the test finishes, so tests can inject fakes freely.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()

	origLoadConfigFile := loadConfigFile
	origLoadTimeouts := loadTimeouts
	origNewControlPlane := newControlPlane
	origNewDataPlane := newDataPlane
	origNewResolver := newResolver
	origNewReconciler := newReconciler
	origCheckAuthPrereqs := checkAuthPrereqs
	origBuildRegistry := buildRegistry
	origNewRunner := newRunner
	origWriteReportFile := writeReportFile
	origNewUploader := newUploader

	t.Cleanup(func() {
		loadConfigFile = origLoadConfigFile
		loadTimeouts = origLoadTimeouts
		newControlPlane = origNewControlPlane
		newDataPlane = origNewDataPlane
		newResolver = origNewResolver
		newReconciler = origNewReconciler
		checkAuthPrereqs = origCheckAuthPrereqs
		buildRegistry = origBuildRegistry
		newRunner = origNewRunner
		writeReportFile = origWriteReportFile
		newUploader = origNewUploader
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Fabric: config.FabricConfig{
			APIEndpoint:   "https://api.fabric.example/v1",
			QueryEndpoint: "https://query.fabric.example",
		},
		Topology: config.Topology{Workspace: config.WorkspaceSpec{
			Name: "otel-workspace",
			Databases: []config.DatabaseSpec{{
				Name: "otel-db",
				Tables: []config.TableSpec{
					{Name: "OTELLogs", Columns: []config.ColumnSpec{{Name: "Timestamp", Type: "datetime"}}},
				},
			}},
		}},
		Verify: config.VerifyConfig{GateThreshold: 3},
		Report: config.ReportConfig{Format: "json"},
	}
}

type fakeResolver struct {
	resolveErr error
	resolved   int
}

func (f *fakeResolver) Resolve(context.Context) (*auth.Session, error) {
	f.resolved++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &auth.Session{
		Identity:  "test-principal",
		Token:     "tok",
		Strategy:  auth.StrategyExplicitCredential,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeResolver) WithReauth(ctx context.Context, op func(context.Context) error) error {
	return op(ctx)
}

// installCommonFakes wires the config, timeouts, resolver and control
// plane every handler test needs.
func installCommonFakes(t *testing.T, cfg *config.Config, mock *fabric.MockControlPlane, resolver sessionResolver) {
	t.Helper()

	loadConfigFile = func(string) (*config.Config, error) { return cfg, nil }
	loadTimeouts = func() *config.Timeouts {
		return &config.Timeouts{
			APICall:           time.Second,
			Probe:             time.Second,
			PollInterval:      time.Millisecond,
			PollBudget:        20 * time.Millisecond,
			RetryMaxAttempts:  2,
			RetryInitialDelay: time.Millisecond,
		}
	}
	newControlPlane = func(*config.Config, fabric.TokenSource, *config.Timeouts) fabric.ControlPlane {
		return mock
	}
	newDataPlane = func(*config.Config, fabric.TokenSource, *config.Timeouts) fabric.DataPlane {
		return &fabric.MockDataPlane{QueryFunc: func(database, expression string) (fabric.Rows, error) {
			if strings.Contains(expression, "getschema") {
				return fabric.Rows{{"ColumnName": "Timestamp", "ColumnType": "datetime"}}, nil
			}
			return fabric.Rows{{"Count": int64(1)}}, nil
		}}
	}
	newResolver = func(config.AuthConfig, *config.Timeouts, *auth.Store, auth.ProbeFunc) sessionResolver {
		return resolver
	}
	checkAuthPrereqs = func() *prerequisites.CheckResults {
		return &prerequisites.CheckResults{}
	}
}
