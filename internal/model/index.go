package model

// ChunkMetadata 随向量一起存储，检索命中时原样返回。
type ChunkMetadata struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// IndexEntry 是写入向量索引的一条记录。
type IndexEntry struct {
	ID       string
	Vector   []float32
	Metadata ChunkMetadata
}

// SearchHit 是一次相似度检索的命中结果，Score 为余弦相似度。
type SearchHit struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// IndexStats 是向量索引的统计信息。
type IndexStats struct {
	TotalDocuments int `json:"totalDocuments"`
	Dimension      int `json:"dimension"`
	// StoredChunks 只在开启 MySQL 时填写，为 rag_chunks 表的记录数
	StoredChunks int64 `json:"storedChunks,omitempty"`
}

// EsChunkDocument 定义了存储在 Elasticsearch 中的文档结构。
type EsChunkDocument struct {
	ChunkID     string    `json:"chunk_id"`
	DocumentID  string    `json:"document_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	Source      string    `json:"source"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Vector      []float32 `json:"vector"`
}

// Metadata 还原出索引元数据。
func (d EsChunkDocument) Metadata() ChunkMetadata {
	return ChunkMetadata{
		DocumentID:  d.DocumentID,
		Title:       d.Title,
		Content:     d.Content,
		Type:        d.Type,
		Source:      d.Source,
		ChunkIndex:  d.ChunkIndex,
		TotalChunks: d.TotalChunks,
	}
}
