package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/auth"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
)

func TestReconcile_FreshTopologyConverges(t *testing.T) {
	saveAndRestoreFactories(t)
	mock := fabric.NewMockControlPlane()
	installCommonFakes(t, testConfig(), mock, &fakeResolver{})

	err := Reconcile(context.Background(), ReconcileFlags{ConfigPath: "fabric.yaml"})

	assert.NoError(t, err)
	assert.Equal(t, 3, mock.CallCount("create", ""))
}

func TestReconcile_AuthExhaustionExitsWithCode2(t *testing.T) {
	saveAndRestoreFactories(t)
	mock := fabric.NewMockControlPlane()
	resolver := &fakeResolver{resolveErr: &auth.Error{Attempts: []*auth.StrategyError{{
		Strategy: auth.StrategyCachedToken,
		Class:    auth.ReasonNotConfigured,
		Err:      errors.New("no token cache"),
	}}}}
	installCommonFakes(t, testConfig(), mock, resolver)

	err := Reconcile(context.Background(), ReconcileFlags{})

	var exitErr *ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitAuthFailure, exitErr.Code)
	assert.Equal(t, 0, mock.CallCount("", ""))
}

func TestReconcile_UnresolvedResourcesExitWithCode1(t *testing.T) {
	saveAndRestoreFactories(t)
	mock := fabric.NewMockControlPlane()
	denied := &fabric.APIError{StatusCode: http.StatusForbidden, Code: "InsufficientPrivileges"}
	mock.FailCreate(fabric.KindWorkspace, "", "otel-workspace", denied, denied)
	installCommonFakes(t, testConfig(), mock, &fakeResolver{})

	err := Reconcile(context.Background(), ReconcileFlags{})

	var exitErr *ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUnresolved, exitErr.Code)
	assert.Contains(t, err.Error(), "did not resolve")
}

func TestReconcile_ConfigLoadFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	loadConfigFile = func(string) (*config.Config, error) {
		return nil, errors.New("no such file")
	}

	err := Reconcile(context.Background(), ReconcileFlags{ConfigPath: "missing.yaml"})
	assert.ErrorContains(t, err, "failed to load config")
}

func TestReconcile_SkipWorkspaceFlag(t *testing.T) {
	saveAndRestoreFactories(t)
	mock := fabric.NewMockControlPlane()
	mock.Seed(fabric.KindWorkspace, "", "otel-workspace", "ws-1")
	mock.Seed(fabric.KindDatabase, "ws-1", "otel-db", "db-1")
	mock.Seed(fabric.KindTable, "db-1", "OTELLogs", "tbl-1")
	installCommonFakes(t, testConfig(), mock, &fakeResolver{})

	err := Reconcile(context.Background(), ReconcileFlags{SkipWorkspace: true})

	assert.NoError(t, err)
	// The workspace is verified, never created.
	assert.Equal(t, 0, mock.CallCount("create", fabric.KindWorkspace))
}
