// Package driven defines the interfaces the core requires from
// infrastructure: stores, vendor services and search indexes.
// Adapters under internal/adapters/driven implement them.
package driven
