// Package api provides the HTTP REST API for the SAMS auth service.
//
// It exposes registration, login, and current-user endpoints, plus
// admin-gated user management, the staff directory, and the audit log.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
