// Package events provides the progress events of a tagging run.
//
// The pipeline emits a PipelineEvent whenever a window is reconciled or
// rejected and whenever a deck completes or fails. Handlers registered on an
// InMemoryEventEmitter receive every event synchronously, from whichever
// worker produced it. ProgressHandler turns the stream into cumulative card
// counts for the CLI.
package events
