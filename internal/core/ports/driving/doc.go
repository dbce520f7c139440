// Package driving defines the interfaces the CLI uses to reach the core:
// the connection manager that fans out over platform adapters and the
// settings service for OAuth client configuration.
//
// Implementations live in internal/core/services.
package driving
