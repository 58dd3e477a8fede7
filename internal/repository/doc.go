// Package repository opens the SQLite database and migrates the schema.
// Per-aggregate repositories live in the subpackages.
package repository
