package repository

import (
	"context"

	"f1-rag-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkRepository 定义了对 rag_chunks 表的数据操作接口。
type ChunkRepository interface {
	UpsertBatch(ctx context.Context, records []*model.ChunkRecord) error
	FindByDocumentID(ctx context.Context, documentID string) ([]*model.ChunkRecord, error)
	Count(ctx context.Context) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// UpsertBatch 以 chunk_id 为键批量写入，重复导入时覆盖旧记录。
func (r *chunkRepository) UpsertBatch(ctx context.Context, records []*model.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(records, 100).Error
}

// FindByDocumentID 按分块顺序返回某篇文档的全部分块。
func (r *chunkRepository) FindByDocumentID(ctx context.Context, documentID string) ([]*model.ChunkRecord, error) {
	var records []*model.ChunkRecord
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("chunk_index").Find(&records).Error
	return records, err
}

func (r *chunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ChunkRecord{}).Count(&n).Error
	return n, err
}
