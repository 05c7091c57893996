// Package corpus 从 YAML 文件读取 F1 知识文档。
package corpus

import (
	"fmt"
	"os"
	"strings"

	"f1-rag-go/internal/model"

	"gopkg.in/yaml.v3"
)

type file struct {
	Documents []model.Document `yaml:"documents"`
}

// Parse 解析语料文档列表。每篇文档必须有 title 和 content，
// type 和 source 缺省时分别为 "general" 和 "corpus"。
func Parse(data []byte) ([]model.Document, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, fmt.Errorf("%w: corpus has no documents", model.ErrInvalidInput)
	}
	for i := range f.Documents {
		d := &f.Documents[i]
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" || strings.TrimSpace(d.Content) == "" {
			return nil, fmt.Errorf("%w: document %d needs a title and content", model.ErrInvalidInput, i)
		}
		if d.Type == "" {
			d.Type = "general"
		}
		if d.Source == "" {
			d.Source = "corpus"
		}
	}
	return f.Documents, nil
}

// LoadFile 从磁盘读取并解析语料文件。
func LoadFile(path string) ([]model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return Parse(data)
}
