package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// PrefixWindow is how much of a file's content feeds its fingerprint.
// Edits beyond the window that keep the modification time are not seen.
const PrefixWindow = 1 << 20

// FileState is a fingerprint together with the stat data it was taken from.
type FileState struct {
	Fingerprint  string
	SizeBytes    uint64
	LastModified time.Time
}

// ComputeFingerprint hashes the first PrefixWindow bytes of path together
// with its modification time.
func ComputeFingerprint(path string) (string, error) {
	state, err := Probe(path)
	if err != nil {
		return "", err
	}
	return state.Fingerprint, nil
}

// Probe fingerprints path and returns the size and modification time read
// from the same open handle.
func Probe(path string) (FileState, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileState{}, fmt.Errorf("%w: %w", ErrFingerprint, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FileState{}, fmt.Errorf("%w: %w", ErrFingerprint, err)
	}
	if info.IsDir() {
		return FileState{}, fmt.Errorf("%w: %s is a directory", ErrFingerprint, path)
	}

	h := sha256.New()
	if _, err := io.CopyN(h, f, PrefixWindow); err != nil && !errors.Is(err, io.EOF) {
		return FileState{}, fmt.Errorf("%w: read %s: %w", ErrFingerprint, path, err)
	}
	modTime := info.ModTime().UTC()
	h.Write([]byte(modTime.Format(time.RFC3339Nano)))

	return FileState{
		Fingerprint:  hex.EncodeToString(h.Sum(nil)),
		SizeBytes:    uint64(info.Size()),
		LastModified: modTime,
	}, nil
}
