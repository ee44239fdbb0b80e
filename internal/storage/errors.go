package storage

import "errors"

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexOpen     = errors.New("open index")
	ErrIndexWrite    = errors.New("index write failed")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrWriterClosed  = errors.New("writer already committed or rolled back")
)
