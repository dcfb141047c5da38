package driving

import "context"

// RecordFailure describes a single record that failed within a run without
// aborting it. The record keeps its prior persisted state (or a placeholder,
// for enrichment) so the next scheduled run picks it up.
type RecordFailure struct {
	ID     string
	Reason string
}

// EnrichmentReport summarises one enrichment run.
type EnrichmentReport struct {
	// Processed counts ideas marked processed this run, including ideas
	// whose enrichment degraded to placeholder text.
	Processed int
	Failures  []RecordFailure
}

// DeliveryReport summarises one delivery run.
type DeliveryReport struct {
	// Sent counts results whose message sequence was delivered this run.
	Sent     int
	Failures []RecordFailure
}

// EnrichmentRunner executes one enrichment batch: a single read-modify-write
// cycle against the document store. Callers must not overlap runs; the store
// write is guarded only by the version token.
type EnrichmentRunner interface {
	Run(ctx context.Context) (*EnrichmentReport, error)
}

// DeliveryRunner executes one delivery batch under the same transaction
// contract as EnrichmentRunner.
type DeliveryRunner interface {
	Run(ctx context.Context) (*DeliveryReport, error)
}
