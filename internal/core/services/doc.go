// Package services implements the driving port interfaces for lexrag.
//
// DocumentService owns version chains and optimistic updates, Ingestor
// turns PENDING versions into indexed chunks in the background,
// RetrievalService answers questions from the index with cited sources,
// and AuditService records every mutation and query. Services depend only
// on domain types and driven ports.
package services
