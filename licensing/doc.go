// Package licensing holds the persistent domain model of the license server:
// trading clients (devices), products, and the two license families.
//
// Table and column names match the legacy MySQL schema the original service
// ran against, so the rewrite can point at the same database. Field names are
// idiomatic Go; the bun tags carry the legacy spelling.
package licensing
