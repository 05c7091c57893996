// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	// 1. 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
	}
	return client, nil
}

// Reporter 把导入摘要以 JSON 对象写入 MinIO。
type Reporter struct {
	client *minio.Client
	bucket string
	object string
}

// NewReporter 创建一个写入 bucket/object 的摘要上报器。
func NewReporter(client *minio.Client, bucket, object string) *Reporter {
	return &Reporter{client: client, bucket: bucket, object: object}
}

func (r *Reporter) Report(ctx context.Context, summary model.MetadataSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata summary: %w", err)
	}
	_, err = r.client.PutObject(ctx, r.bucket, r.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("上传导入摘要到 MinIO 失败: %w", err)
	}
	log.Infof("[MinIO] 导入摘要已写入 %s/%s", r.bucket, r.object)
	return nil
}

// GetObject 读取整个对象，用于下载语料文件。
func GetObject(ctx context.Context, client *minio.Client, bucket, object string) ([]byte, error) {
	obj, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取 MinIO 对象 %s 失败: %w", object, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取 MinIO 对象 %s 失败: %w", object, err)
	}
	return data, nil
}

// PutObject 上传一段字节，用于把本地语料推送到对象存储。
func PutObject(ctx context.Context, client *minio.Client, bucket, object string, data []byte, contentType string) error {
	_, err := client.PutObject(ctx, bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传 MinIO 对象 %s 失败: %w", object, err)
	}
	return nil
}

// Bucket 绑定一个存储桶，供导入任务按对象名读取语料。
type Bucket struct {
	client *minio.Client
	name   string
}

func NewBucket(client *minio.Client, name string) *Bucket {
	return &Bucket{client: client, name: name}
}

func (b *Bucket) Fetch(ctx context.Context, object string) ([]byte, error) {
	return GetObject(ctx, b.client, b.name, object)
}
