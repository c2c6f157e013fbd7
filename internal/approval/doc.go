// Package approval stores human approval requests for generated uploads.
//
// Requests live in one JSON object keyed by an 8 character hex id. Each
// operation loads the whole file, mutates it in memory, and writes it back
// atomically with renameio while holding an flock, so a running watcher and
// an interactive approve command can share the file safely. Requests are
// never deleted; status only moves from pending to approved or rejected.
package approval
