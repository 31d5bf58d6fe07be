// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/tagvault/internal/models"

// Provider is the interface for vault file operations. Every path is relative
// to the vault root.
type Provider interface {
	// Resolve returns the absolute location of path, rejecting paths that
	// leave the vault.
	Resolve(path string) (string, error)
	// Exists reports whether path names a regular file.
	Exists(path string) (bool, error)
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}
