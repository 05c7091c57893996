package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"f1-rag-go/internal/model"
)

// FileReporter 把导入摘要写成本地 JSON 文件。
type FileReporter struct {
	Path string
}

func (r FileReporter) Report(_ context.Context, summary model.MetadataSummary) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata summary: %w", err)
	}
	tmp := r.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write metadata summary: %w", err)
	}
	return os.Rename(tmp, r.Path)
}
