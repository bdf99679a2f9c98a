// Package fs classifies filesystem entries, reads and applies their metadata
// and creates the special files a restore needs. Symlinks are never followed
// when an entry is inspected.
package fs
