// Package model 包含了应用的数据模型定义。
package model

import (
	"fmt"
	"regexp"
	"time"
)

// Document 是导入前的一篇原始语料。导入后视为不可变。
type Document struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	Type    string `json:"type" yaml:"type"`
	Source  string `json:"source" yaml:"source"`
}

// Chunk 是文档切分后的一个片段，也是检索的最小单位。
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"documentId"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ChunkID 生成 {type}_{title}_{index} 形式的分块 ID，标题中的空白替换为下划线。
func ChunkID(docType, title string, index int) string {
	return fmt.Sprintf("%s_%s_%d", docType, whitespaceRun.ReplaceAllString(title, "_"), index)
}

// Metadata 返回写入向量索引的元数据。
func (c Chunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		DocumentID:  c.DocumentID,
		Title:       c.Title,
		Content:     c.Content,
		Type:        c.Type,
		Source:      c.Source,
		ChunkIndex:  c.ChunkIndex,
		TotalChunks: c.TotalChunks,
	}
}

// IngestResult 是一次批量导入的结果。
type IngestResult struct {
	DocumentsProcessed int `json:"documentsProcessed"`
	DocumentsStored    int `json:"documentsStored"`
	ChunksFailed       int `json:"chunksFailed"`
}

// MetadataSummary 描述最近一次导入的语料概况。
type MetadataSummary struct {
	TotalDocuments int       `json:"totalDocuments"`
	Types          []string  `json:"types"`
	Sources        []string  `json:"sources"`
	Timestamp      time.Time `json:"timestamp"`
}

// Topic 是对外展示的知识主题。
type Topic struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
