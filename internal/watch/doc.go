// Package watch reports changes to scenario files for rxstate watch.
//
// Directories are watched recursively with fsnotify. Events are filtered
// by include and ignore patterns and debounced, so an editor that writes
// a file in several steps produces one Change.
package watch
