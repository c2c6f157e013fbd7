// Package pipeline sequences one video through analysis, metadata
// generation, thumbnail rendering and then a dry run, an immediate upload or
// an approval request.
//
// The controller owns no state of its own. Approval requests live in the
// approval store, outcomes are mirrored into the ingestion ledger when one is
// configured, and every collaborator is reached through a small interface so
// tests can substitute fakes.
package pipeline
