// Package storage defines the vault holding protocol sources as plain text
// files laid out as <series short name>/<YYYY-MM-DD>.txt.
package storage

import (
	"path"
	"strings"
	"time"
)

// Ext is the file extension of protocol sources.
const Ext = ".txt"

const fileDate = "2006-01-02"

// SourceFile describes one protocol source in the vault.
type SourceFile struct {
	Path      string    `json:"path"`
	Series    string    `json:"series"`
	Date      time.Time `json:"date"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns every protocol source under dir (relative to vault root).
	List(dir string) ([]SourceFile, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
}

// SourcePath returns the vault path of a meeting's source.
func SourcePath(series string, date time.Time) string {
	return path.Join(series, date.Format(fileDate)+Ext)
}

// ParseSourcePath splits a vault path into series short name and date.
func ParseSourcePath(rel string) (series string, date time.Time, ok bool) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	dir, file := path.Split(rel)
	dir = strings.Trim(dir, "/")
	if dir == "" || strings.Contains(dir, "/") || !strings.HasSuffix(file, Ext) {
		return "", time.Time{}, false
	}
	date, err := time.ParseInLocation(fileDate, strings.TrimSuffix(file, Ext), time.UTC)
	if err != nil {
		return "", time.Time{}, false
	}
	return dir, date, true
}
