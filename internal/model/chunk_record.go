package model

import "time"

// ChunkRecord 对应于数据库中的 rag_chunks 表，以分块 ID 为主键，重复导入时覆盖。
type ChunkRecord struct {
	ChunkID      string    `gorm:"primaryKey;type:varchar(255);column:chunk_id" json:"chunkId"`
	DocumentID   string    `gorm:"type:varchar(255);index;column:document_id" json:"documentId"`
	Title        string    `gorm:"type:varchar(255);column:title" json:"title"`
	Type         string    `gorm:"type:varchar(64);index;column:type" json:"type"`
	Source       string    `gorm:"type:varchar(128);column:source" json:"source"`
	ChunkIndex   int       `gorm:"not null;column:chunk_index" json:"chunkIndex"`
	TotalChunks  int       `gorm:"not null;column:total_chunks" json:"totalChunks"`
	Content      string    `gorm:"type:text;column:content" json:"content"`
	ModelVersion string    `gorm:"type:varchar(64);column:model_version" json:"modelVersion"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ChunkRecord) TableName() string {
	return "rag_chunks"
}

// NewChunkRecord 从分块构造数据库记录。
func NewChunkRecord(c Chunk, modelVersion string) *ChunkRecord {
	return &ChunkRecord{
		ChunkID:      c.ID,
		DocumentID:   c.DocumentID,
		Title:        c.Title,
		Type:         c.Type,
		Source:       c.Source,
		ChunkIndex:   c.ChunkIndex,
		TotalChunks:  c.TotalChunks,
		Content:      c.Content,
		ModelVersion: modelVersion,
	}
}
