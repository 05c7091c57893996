// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Hit 是一条 kNN 检索命中，Score 为 Elasticsearch 原始得分。
type Hit struct {
	Source model.EsChunkDocument
	Score  float64
}

// InitES 创建 Elasticsearch 客户端，并确保分块索引存在。
func InitES(esCfg config.ElasticsearchConfig, dims int) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	if err := EnsureIndex(client, esCfg.IndexName, dims); err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureIndex 检查索引是否存在，如果不存在则按维度创建。
// 向量写入前已归一化，因此使用 dot_product 相似度。
func EnsureIndex(client *elasticsearch.Client, indexName string, dims int) error {
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		return fmt.Errorf("检查索引是否存在时出错: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("[ES] 索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引 '%s' 时收到意外的状态码: %d", indexName, res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_id": { "type": "keyword" },
				"document_id": { "type": "keyword" },
				"title": { "type": "text", "fields": { "raw": { "type": "keyword" } } },
				"content": { "type": "text" },
				"type": { "type": "keyword" },
				"source": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"total_chunks": { "type": "integer" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "dot_product"
				}
			}
		}
	}`, dims)

	res, err = client.Indices.Create(indexName, client.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 创建索引 '%s' 时返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}
	log.Infof("[ES] 索引 '%s' 创建成功, 维度: %d", indexName, dims)
	return nil
}

// BulkIndex 以 chunk_id 作为文档 ID 批量写入，已存在的文档会被覆盖。
func BulkIndex(ctx context.Context, client *elasticsearch.Client, indexName string, docs []model.EsChunkDocument) error {
	var body bytes.Buffer
	for _, doc := range docs {
		meta := map[string]any{"index": map[string]any{"_index": indexName, "_id": doc.ChunkID}}
		if err := json.NewEncoder(&body).Encode(meta); err != nil {
			return err
		}
		if err := json.NewEncoder(&body).Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   indexName,
		Body:    &body,
		Refresh: "true",
	}
	res, err := req.Do(ctx, client)
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk request returned an error: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk request finished with item errors")
	}
	return nil
}

// KNNSearch 执行 kNN 检索，返回命中文档（不含向量字段）。
func KNNSearch(ctx context.Context, client *elasticsearch.Client, indexName string, vector []float32, k int) ([]Hit, error) {
	numCandidates := k * 10
	if numCandidates < 100 {
		numCandidates = 100
	}
	query := map[string]any{
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
		},
		"size":    k,
		"_source": map[string]any{"excludes": []string{"vector"}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexName),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch returned an error: %s, body: %s", res.Status(), string(bodyBytes))
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunkDocument `json:"_source"`
				Score  float64               `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]Hit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, Hit{Source: h.Source, Score: h.Score})
	}
	return hits, nil
}

// Count 返回索引中的文档数。
func Count(ctx context.Context, client *elasticsearch.Client, indexName string) (int, error) {
	res, err := client.Count(
		client.Count.WithContext(ctx),
		client.Count.WithIndex(indexName),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count returned an error: %s", res.String())
	}
	var countResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return countResp.Count, nil
}
