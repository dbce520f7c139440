// Package services implements the driving port interfaces.
//
// CredentialStore maps platform tokens onto a key-value store,
// SettingsService reads OAuth client settings from the config store and
// ConnectionManager fans operations out over the platform adapters.
package services
