// Package connection implements the wire layer between the client bindings
// and the Relaypoint service.
//
// Two transports are provided. [HTTP] covers the full entity contract
// (fetch/create/update/delete plus named procedures over POST /rpc/{proc});
// [WS] carries only named procedures over a single websocket with
// request/response matching by id, for deployments where procedures are
// served by the realtime endpoint. Both map service rejections onto the same
// typed error taxonomy, so the optimistic layer treats them uniformly.
//
// Every call carries the caller's bearer token and the active tenant scope
// pair; the server is the sole authority on whether an operation is
// permitted.
package connection

import (
	"context"
	"net/url"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// Connection is the remote entity service contract consumed by the
// optimistic layer.
type Connection interface {
	// Fetch lists records at path, decoding the response array into out.
	// Rows may embed one named child collection.
	Fetch(ctx context.Context, path string, query url.Values, out any) error

	// Create posts a payload and decodes the canonical record (with the
	// server-assigned identifier and computed fields) into out.
	Create(ctx context.Context, path string, in, out any) error

	// Update patches the record at path. When the service returns the
	// updated record and out is non-nil, it is decoded into out; a
	// 204 reply leaves out untouched.
	Update(ctx context.Context, path string, in, out any) error

	// Delete removes the record at path.
	Delete(ctx context.Context, path string) error

	// Call invokes a named remote procedure encapsulating a multi-row
	// business transaction. The result, when present and out is non-nil,
	// is decoded into out.
	Call(ctx context.Context, proc string, params, out any) error

	// SetToken installs the bearer token used for subsequent calls.
	// An empty token clears authentication.
	SetToken(token string)

	// UseScope installs the tenant scope pair carried on subsequent calls.
	UseScope(scope models.Scope)

	Close() error
}
