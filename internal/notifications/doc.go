// Package notifications delivers approval prompts and workflow events.
//
// Telegram (sendMessage with a Markdown prompt, then sendPhoto with the
// thumbnail) and ntfy (plain text, then the thumbnail as an attachment) are
// selected by configuration; with neither configured a noop service is used.
// Pipeline code talks to the best-effort Notifier, which logs failures and
// reports delivery as a bool instead of returning errors.
package notifications
