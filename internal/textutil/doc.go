// Package textutil holds small string helpers shared by the pipeline,
// thumbnail renderer, notifier, and CLI: filesystem-safe tokens, titles
// derived from filenames, caption text, and display truncation.
package textutil
