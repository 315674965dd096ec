package model

// KnowledgeChunk is one retrievable span of a source document. Rows are
// created once per content hash during ingestion and never updated.
type KnowledgeChunk struct {
	ID              string `json:"id"`
	SourceDoc       string `json:"source_doc"`
	SourcePageStart *int   `json:"source_page_start"`
	SourcePageEnd   *int   `json:"source_page_end"`
	Text            string `json:"text"`
	Hash            string `json:"hash"`
	Version         int    `json:"version"`
	CitationKey     string `json:"citation_key"`
	Ctime           int64  `json:"ctime"`
	Mtime           int64  `json:"mtime"`
}

type KnowledgeEmbedding struct {
	ChunkID   string    `json:"chunk_id"`
	ModelName string    `json:"model_name"`
	Vector    []float32 `json:"vector"`
	Ctime     int64     `json:"ctime"`
}
