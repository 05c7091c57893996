package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 表示调用方传入了空文本、空批次或维度不匹配的向量。
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmbeddingFailure 表示查询向量化失败。
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrBackendUnavailable 表示外部依赖不可用。
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrRAGProcessing 是问答流程中任何阶段失败的统一类别。
	ErrRAGProcessing = errors.New("rag processing failed")
)

// ProcessingError 包装问答流程中某个阶段的失败原因。
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("rag processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrRAGProcessing) 对所有阶段失败成立。
func (e *ProcessingError) Is(target error) bool {
	return target == ErrRAGProcessing
}
