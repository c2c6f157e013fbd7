// Package watcher detects new video files in a folder and hands each one to
// a callback once its size has stopped changing.
//
// Events come from fsnotify. Every matching Create or Write event starts a
// stability poll for that path unless the path is already in flight; stable
// paths are pushed onto a bounded queue drained by a fixed pool of workers.
// ScanExisting covers files that were present before the watch began.
package watcher
