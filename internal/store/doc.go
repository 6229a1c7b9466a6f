// Package store defines the persistence contracts the pipeline writes recipes through.
// Implementations live in subpackages; this package must not import file formats or
// database drivers.
package store
