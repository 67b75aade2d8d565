// Package scope resolves per-store webhook settings from raw scoped values.
// A store scope value overrides the default scope value for the same key.
package scope
