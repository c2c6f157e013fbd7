// Package logs reads the onemin log file for the `onemin logs` command.
//
// Last returns the final N lines with bounded memory and Follow polls for
// appended lines until its context is cancelled, restarting from the top when
// the file is truncated or replaced. Only newline-terminated lines are
// delivered, so a record that is still being written is picked up whole on
// the next poll.
package logs
