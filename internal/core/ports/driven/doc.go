// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - KeyValueStore: Host persistence for credentials and cached payloads
//   - CredentialStore: Platform-scoped token and cache access over a KeyValueStore
//   - PlatformService: One vendor adapter (Instagram, Facebook, TikTok, Spotify)
//   - URLOpener: Launches authorization URLs on the host
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
