// Package config loads, normalizes, and validates onemin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and TELEGRAM_BOT_TOKEN. The Config type is loaded once by
// the CLI and passed explicitly to every component; nothing in the module reads
// settings from a global.
package config
