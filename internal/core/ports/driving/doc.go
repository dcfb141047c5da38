// Package driving defines the inbound ports of the pipeline: the contracts
// the CLI and scheduler call to run the enrichment and delivery stages.
package driving
