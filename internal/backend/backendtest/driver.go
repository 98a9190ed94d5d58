// Package backendtest is a backend.Driver implementation over a
// sqlmock-driven *sql.DB, used only by this module's own test suites
// to drive query rendering and ExecStepGroup execution through a real
// database/sql surface without a live database. Grounded on
// other_examples/manifests/gandaldf-sqlr's go.mod, which requires
// github.com/DATA-DOG/go-sqlmock for exactly this purpose.
package backendtest

import (
	"context"
	"database/sql"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/kgearhart/vh/internal/backend"
	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// Driver is a backend.Driver implementation over a sqlmock DB.
type Driver struct {
	DB   *sql.DB
	Mock sqlmock.Sqlmock
}

// New constructs a Driver with a fresh sqlmock expectation recorder.
func New() (*Driver, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, err
	}
	return &Driver{DB: db, Mock: mock}, nil
}

type conn struct {
	db *sql.DB
	tx *sql.Tx
}

func (c *conn) Close() error { return nil }

func (d *Driver) Connect(ctx context.Context, cred backend.Credential) (backend.Conn, error) {
	return &conn{db: d.DB}, nil
}

func (d *Driver) Disconnect(c backend.Conn) error { return nil }

func (d *Driver) XactBegin(ctx context.Context, bc backend.Conn) error {
	c := bc.(*conn)
	if c.tx != nil {
		return verr.New(verr.KindBackendError, "connection already has an open transaction")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (d *Driver) XactCommit(ctx context.Context, bc backend.Conn) error {
	c := bc.(*conn)
	if c.tx == nil {
		return verr.New(verr.KindBackendError, "connection has no open transaction to commit")
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

func (d *Driver) XactRollback(ctx context.Context, bc backend.Conn) error {
	c := bc.(*conn)
	if c.tx == nil {
		return verr.New(verr.KindBackendError, "connection has no open transaction to roll back")
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// Exec runs sql with params bound positionally, inside conn's open
// transaction when one exists (vh_be_exec).
func (d *Driver) Exec(ctx context.Context, bc backend.Conn, query string, params []typevar.Value) (backend.Result, error) {
	c := bc.(*conn)

	args := make([]any, len(params))
	for i, v := range params {
		a, err := paramArg(v)
		if err != nil {
			return backend.Result{}, err
		}
		args[i] = a
	}

	exec := c.db.ExecContext
	if c.tx != nil {
		exec = c.tx.ExecContext
	}
	res, err := exec(ctx, query, args...)
	if err != nil {
		return backend.Result{}, err
	}
	ra, _ := res.RowsAffected()
	id, _ := res.LastInsertId()
	return backend.Result{RowsAffected: ra, LastInsertID: id}, nil
}

// Command renders n with this driver's own ParamPlaceholder, fully
// qualifying table references (vh_be_command).
func (d *Driver) Command(n node.Node) (string, []typevar.Value, error) {
	return node.Cmd(n, nil, d.ParamPlaceholder, true)
}

// ParamPlaceholder renders ANSI-style "?" placeholders, matching the
// positional-argument form database/sql's Exec/Query expect
// regardless of the underlying driver's own native placeholder
// syntax (vh_be_param).
func (d *Driver) ParamPlaceholder(ctx *node.CmdContext, v typevar.Value) {
	ctx.Out.WriteString("?")
	ctx.Params = append(ctx.Params, v)
}

func paramArg(v typevar.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Kind {
	case typevar.KindBool:
		return v.Bool(), nil
	case typevar.KindInt16:
		return v.Int16(), nil
	case typevar.KindInt32:
		return v.Int32(), nil
	case typevar.KindInt64:
		return v.Int64(), nil
	case typevar.KindFloat32:
		return v.Float32(), nil
	case typevar.KindFloat64:
		return v.Float64(), nil
	case typevar.KindString:
		return v.String(), nil
	default:
		return nil, verr.New(verr.KindUnsupportedConv, "value kind %v has no database/sql argument form", v.Kind)
	}
}

// nativeType maps one SQL column type name to the TypeID/size pair
// this module's TAM registry understands, the Go analogue of
// BackEnd.c's native_types hash table (vh_be_type_setnative /
// vh_be_type_getnative). Unrecognized native types are a SchemaConflict
// rather than a silent guess.
func nativeType(native string) (typesys.TypeID, uint32, uint32, error) {
	switch native {
	case "boolean", "bool":
		return typesys.TypeBool, 1, 1, nil
	case "smallint", "int2":
		return typesys.TypeInt16, 2, 2, nil
	case "integer", "int", "int4":
		return typesys.TypeInt32, 4, 4, nil
	case "bigint", "int8":
		return typesys.TypeInt64, 8, 8, nil
	case "real", "float4":
		return typesys.TypeFloat32, 4, 4, nil
	case "double precision", "float8", "double":
		return typesys.TypeFloat64, 8, 8, nil
	case "text", "varchar", "character varying":
		return typesys.TypeString, 16, 8, nil
	default:
		return 0, 0, 0, verr.New(verr.KindSchemaConflict, "no native type mapping for column type %q", native)
	}
}

// schemaRow is one row of the introspection query LoadSchema issues.
type schemaRow struct {
	Schema     string
	Table      string
	Column     string
	NativeType string
	IsPrimary  bool
}

// LoadSchema queries conn for its table/column catalog and registers
// one catalog.Def (with a single, unversioned DefVer) per distinct
// table found, in the order rows are returned (vh_be_loadschema).
// Tests drive this by priming Mock with an ExpectQuery against the
// fixed introspection statement below.
func (d *Driver) LoadSchema(ctx context.Context, bc backend.Conn, cat *catalog.Catalog) error {
	c := bc.(*conn)

	rows, err := c.db.QueryContext(ctx, introspectionQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	order := []string{}
	byTable := map[string][]schemaRow{}
	for rows.Next() {
		var r schemaRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.Column, &r.NativeType, &r.IsPrimary); err != nil {
			return err
		}
		key := r.Schema + "." + r.Table
		if _, ok := byTable[key]; !ok {
			order = append(order, key)
		}
		byTable[key] = append(byTable[key], r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, key := range order {
		tableRows := byTable[key]
		def := catalog.NewDef(tableRows[0].Schema, tableRows[0].Table, false)

		fields := make([]heap.Field, 0, len(tableRows))
		var pkFields []string
		for _, r := range tableRows {
			tyID, size, align, err := nativeType(r.NativeType)
			if err != nil {
				return err
			}
			fields = append(fields, heap.Field{Name: r.Column, TypeID: tyID, Size: size, MaxAlign: align})
			if r.IsPrimary {
				pkFields = append(pkFields, r.Column)
			}
		}

		dv, err := def.AddVersion("v1", fields, false)
		if err != nil {
			return err
		}

		if len(pkFields) > 0 {
			keyFields := make([]*heap.Field, 0, len(pkFields))
			for _, name := range pkFields {
				f, err := dv.FieldByName(name)
				if err != nil {
					return err
				}
				keyFields = append(keyFields, f)
			}
			key, err := catalog.NewKey(keyFields...)
			if err != nil {
				return err
			}
			dv.KeyPrimary = key
		}

		if err := cat.Register(def); err != nil {
			return err
		}
	}
	return nil
}

const introspectionQuery = `SELECT table_schema, table_name, column_name, data_type, is_primary FROM information_schema.columns ORDER BY table_schema, table_name, ordinal_position`
