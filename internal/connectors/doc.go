// Package connectors holds the platform adapters. Each subpackage wraps one
// vendor's OAuth and REST surface (instagram, facebook, tiktok, spotify) and
// implements driven.PlatformService on top of the shared Base in this package
// and the HTTP plumbing in restapi.
package connectors
