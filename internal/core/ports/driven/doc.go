// Package driven defines the outbound ports of the pipeline: the document
// store and the external collaborators (enrichment, messaging, rendering)
// the stages depend on. Adapters implement these interfaces.
package driven
