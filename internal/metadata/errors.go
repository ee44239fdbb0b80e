package metadata

import "errors"

var (
	ErrNotFound        = errors.New("index metadata not found")
	ErrMetadataCorrupt = errors.New("index metadata corrupt")
	ErrFingerprint     = errors.New("fingerprint file")
)
