package storage

import "github.com/bull/logsearch/internal/schema"

// Hit is one ranked search match.
type Hit struct {
	Score float64 // bm25 relevance, higher is better; 1.0 without a text clause
	Doc   schema.Document
}

// Stats describes an open index.
type Stats struct {
	IndexID       string
	SchemaVersion string
	DocCount      uint64
	SizeBytes     uint64 // database, WAL and metadata files on disk
}

// DBFileName is the SQLite database inside an index directory.
const DBFileName = "index.db"

// Info keys stored alongside the documents.
const (
	infoIndexID       = "index_id"
	infoSchemaVersion = "schema_version"
	infoNextDocID     = "next_doc_id"
	infoCreatedAt     = "created_at"
)
