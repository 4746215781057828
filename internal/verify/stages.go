package verify

import (
	"context"
	"fmt"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
)

// Built-in stage names.
const (
	StageControlPlaneProbe = "control-plane-probe"
	StageWorkspaceExists   = "workspace-exists"
	StageDatabasesExist    = "databases-exist"
	StageTablesExist       = "tables-exist"
	StageQueryRoundtrip    = "query-roundtrip"
	StageTableSchema       = "table-schema"
	StageDataPropagation   = "data-propagation"
)

// topologyInspector resolves and caches resource ids while stages walk
// the declared topology. Stages run sequentially, so no locking.
type topologyInspector struct {
	cp   fabric.ControlPlane
	topo config.Topology

	workspaceID string
	databaseIDs map[string]string
}

func newTopologyInspector(cp fabric.ControlPlane, topo config.Topology) *topologyInspector {
	return &topologyInspector{cp: cp, topo: topo, databaseIDs: make(map[string]string)}
}

func (ti *topologyInspector) workspace(ctx context.Context) (string, error) {
	if ti.workspaceID != "" {
		return ti.workspaceID, nil
	}
	name := ti.topo.Workspace.Name
	found, id, err := ti.cp.CheckExists(ctx, fabric.KindWorkspace, name, "")
	if err != nil {
		return "", fmt.Errorf("checking workspace %q: %w", name, err)
	}
	if !found {
		return "", fmt.Errorf("workspace %q not found", name)
	}
	ti.workspaceID = id
	return id, nil
}

func (ti *topologyInspector) database(ctx context.Context, name string) (string, error) {
	if id, ok := ti.databaseIDs[name]; ok {
		return id, nil
	}
	wsID, err := ti.workspace(ctx)
	if err != nil {
		return "", err
	}
	found, id, err := ti.cp.CheckExists(ctx, fabric.KindDatabase, name, wsID)
	if err != nil {
		return "", fmt.Errorf("checking database %q: %w", name, err)
	}
	if !found {
		return "", fmt.Errorf("database %q not found", name)
	}
	ti.databaseIDs[name] = id
	return id, nil
}

// BuildRegistry assembles the standard verification pipeline for the
// declared topology. Control-plane stages come first and feed the gate;
// data-plane stages need dp and are omitted when it is nil.
func BuildRegistry(cp fabric.ControlPlane, dp fabric.DataPlane, topo config.Topology, timeouts *config.Timeouts) *Registry {
	ti := newTopologyInspector(cp, topo)
	reg := NewRegistry()

	reg.Add(Stage{
		Name: StageControlPlaneProbe,
		Tags: []string{"control-plane", "auth"},
		Run: func(ctx context.Context) error {
			return cp.Probe(ctx)
		},
	})

	reg.Add(Stage{
		Name: StageWorkspaceExists,
		Tags: []string{"control-plane", "workspace"},
		Run: func(ctx context.Context) error {
			_, err := ti.workspace(ctx)
			return err
		},
	})

	reg.Add(Stage{
		Name: StageDatabasesExist,
		Tags: []string{"control-plane", "database"},
		Run: func(ctx context.Context) error {
			for _, db := range topo.Workspace.Databases {
				if _, err := ti.database(ctx, db.Name); err != nil {
					return err
				}
			}
			return nil
		},
	})

	reg.Add(Stage{
		Name: StageTablesExist,
		Tags: []string{"control-plane", "table"},
		Run: func(ctx context.Context) error {
			for _, db := range topo.Workspace.Databases {
				dbID, err := ti.database(ctx, db.Name)
				if err != nil {
					return err
				}
				for _, tbl := range db.Tables {
					found, _, err := cp.CheckExists(ctx, fabric.KindTable, tbl.Name, dbID)
					if err != nil {
						return fmt.Errorf("checking table %q: %w", tbl.Name, err)
					}
					if !found {
						return fmt.Errorf("table %q not found in database %q", tbl.Name, db.Name)
					}
				}
			}
			return nil
		},
	})

	if dp == nil {
		return reg
	}

	reg.Add(Stage{
		Name: StageQueryRoundtrip,
		Tags: []string{"data-plane"},
		Run: func(ctx context.Context) error {
			for _, db := range topo.Workspace.Databases {
				rows, err := dp.Query(ctx, db.Name, "print ok=1")
				if err != nil {
					return fmt.Errorf("querying database %q: %w", db.Name, err)
				}
				if len(rows) == 0 {
					return fmt.Errorf("database %q returned no rows for a constant query", db.Name)
				}
			}
			return nil
		},
	})

	reg.Add(Stage{
		Name: StageTableSchema,
		Tags: []string{"data-plane", "table"},
		Run: func(ctx context.Context) error {
			for _, db := range topo.Workspace.Databases {
				for _, tbl := range db.Tables {
					if err := checkTableSchema(ctx, dp, db.Name, tbl); err != nil {
						return err
					}
				}
			}
			return nil
		},
	})

	reg.Add(Stage{
		Name:  StageDataPropagation,
		Tags:  []string{"data-plane", "slow"},
		Gated: true,
		Run: func(ctx context.Context) error {
			for _, db := range topo.Workspace.Databases {
				for _, tbl := range db.Tables {
					if err := waitForRows(ctx, dp, db.Name, tbl.Name, timeouts); err != nil {
						return err
					}
				}
			}
			return nil
		},
	})

	return reg
}

// checkTableSchema compares a table's live schema against its declared
// columns. Declared columns must all be present; extra live columns are
// tolerated.
func checkTableSchema(ctx context.Context, dp fabric.DataPlane, database string, tbl config.TableSpec) error {
	rows, err := dp.Query(ctx, database, fmt.Sprintf("['%s'] | getschema", tbl.Name))
	if err != nil {
		return fmt.Errorf("reading schema of %s/%s: %w", database, tbl.Name, err)
	}

	live := make(map[string]string, len(rows))
	for _, row := range rows {
		name, _ := row["ColumnName"].(string)
		typ, _ := row["ColumnType"].(string)
		if name != "" {
			live[name] = typ
		}
	}

	for _, col := range tbl.Columns {
		got, ok := live[col.Name]
		if !ok {
			return fmt.Errorf("table %q is missing column %q", tbl.Name, col.Name)
		}
		if col.Type != "" && got != "" && got != col.Type {
			return fmt.Errorf("table %q column %q has type %q, want %q", tbl.Name, col.Name, got, col.Type)
		}
	}
	return nil
}

// waitForRows polls until the table reports at least one row. Transient
// query errors are ridden out inside the poll budget.
func waitForRows(ctx context.Context, dp fabric.DataPlane, database, table string, timeouts *config.Timeouts) error {
	expression := fmt.Sprintf("['%s'] | count", table)

	err := WaitFor(ctx, timeouts.PollInterval, timeouts.PollBudget, func(ctx context.Context) (bool, error) {
		rows, err := dp.Query(ctx, database, expression)
		if err != nil {
			if fabric.IsTransient(err) {
				return false, nil
			}
			return false, err
		}
		return countRows(rows) > 0, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for rows in %s/%s: %w", database, table, err)
	}
	return nil
}

// countRows extracts the count from a `| count` result, tolerating the
// numeric types the query endpoint may hand back.
func countRows(rows fabric.Rows) int64 {
	if len(rows) == 0 {
		return 0
	}
	v, ok := rows[0]["Count"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
