// Package domain contains the core types of the idea-enhancement pipeline:
// the shared document schema, record identifiers, and mind-map handling.
// It has no dependencies on adapters or external services.
package domain
