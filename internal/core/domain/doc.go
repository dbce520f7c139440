// Package domain defines the core entities for sociallink.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Platform: One of the supported third-party networks
//   - OAuthToken: Persisted OAuth credentials for a platform
//   - Response: The uniform result envelope returned by platform operations
//   - ConnectionStatus: Derived per-platform connectivity
//   - PlatformUser / ContentItem: Normalised vendor data
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
