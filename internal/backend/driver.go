// Package backend defines the back-end driver contract spec.md §6
// names: a seam the core calls through to open connections, run
// transactions, execute rendered SQL, and introspect a live schema,
// without any core package needing to know which SQL dialect or
// database/sql driver actually sits behind it.
//
// Grounded on original_source/src/io/catalog/BackEnd.c's
// vh_be_connect/vh_be_disconnect/vh_be_xact_*/vh_be_exec/vh_be_command/
// vh_be_param/vh_be_loadschema function-table dispatch, replacing its
// BackEndFuncTable of raw function pointers with a plain Go interface.
package backend

import (
	"context"

	"github.com/kgearhart/vh/internal/catalog"
	"github.com/kgearhart/vh/internal/node"
	"github.com/kgearhart/vh/internal/typevar"
)

// Credential carries whatever a Driver needs to open a Conn — at
// minimum a connection string, plus arbitrary driver-specific extras
// (spec.md §6's BackEndCredentialVal).
type Credential struct {
	DSN   string
	Extra map[string]string
}

// Conn is an opaque, driver-owned connection handle
// (BackEndConnection). Core packages never reach into it; they only
// ever pass it back to the Driver that produced it.
type Conn interface {
	Close() error
}

// Result reports the outcome of a successful Exec.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Driver is the back-end driver contract (vh_be_connect/disconnect,
// vh_be_xact_begin/commit/rollback, vh_be_exec, vh_be_command,
// vh_be_param, vh_be_loadschema). internal/planner's ExecStepGroup
// carries rendered SQL and bound parameters; a Driver is what actually
// runs them against a database.
type Driver interface {
	Connect(ctx context.Context, cred Credential) (Conn, error)
	Disconnect(conn Conn) error

	XactBegin(ctx context.Context, conn Conn) error
	XactCommit(ctx context.Context, conn Conn) error
	XactRollback(ctx context.Context, conn Conn) error

	// Exec runs sql with params bound positionally against conn,
	// inside conn's open transaction if one exists (vh_be_exec).
	Exec(ctx context.Context, conn Conn, sql string, params []typevar.Value) (Result, error)

	// Command renders n into this Driver's own SQL dialect
	// (vh_be_command): node.Cmd with this Driver's ParamPlaceholder
	// and fully-qualified-name policy already supplied.
	Command(n node.Node) (string, []typevar.Value, error)

	// ParamPlaceholder is this Driver's node.ParamPlaceholderFunc
	// (vh_be_param), exposed so a caller assembling a node.CmdContext
	// by hand still renders placeholders in this Driver's dialect.
	ParamPlaceholder(ctx *node.CmdContext, v typevar.Value)

	// LoadSchema introspects conn's live schema and registers every
	// table it discovers into cat (vh_be_loadschema).
	LoadSchema(ctx context.Context, conn Conn, cat *catalog.Catalog) error
}
