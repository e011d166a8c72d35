package es

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"go.uber.org/zap"
)

type typedEsClient[D model.Document] struct {
	client *elasticsearch.TypedClient
	// 特别说明：这个实例仅用于获取索引名和mapping，不用于存储数据
	schemaDoc D
}

func InitTypedEsClient[D model.Document](cfg *config.Config) (TypedEsClient[D], error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username: cfg.Elasticsearch.Username,
		Password: cfg.Elasticsearch.Password,
		Addresses: []string{
			cfg.Elasticsearch.Address,
		},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 跳过TLS验证（仅在开发环境中使用）
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化Elasticsearch客户端失败: %w", err)
	}
	return &typedEsClient[D]{client: typedClient}, nil
}

func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	// 检查索引是否已存在
	index := tec.schemaDoc.GetIndex()
	mapping := tec.schemaDoc.GetTypeMapping()
	exists, err := tec.client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("检查索引是否存在失败: %w", err)
	}
	if exists {
		zap.L().Debug("索引已存在,跳过创建", zap.String("index", index))
		return nil
	}

	if mapping == nil {
		_, err = tec.client.Indices.Create(index).Do(ctx)
	} else {
		_, err = tec.client.Indices.Create(index).Mappings(mapping).Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("创建索引失败: %w", err)
	}
	return nil
}

func (tec *typedEsClient[D]) BulkIndexDocsWithID(ctx context.Context, docs []D) error {
	if len(docs) == 0 {
		return nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         tec.schemaDoc.GetIndex(),
		Client:        tec.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024, // 5MB 时自动刷新
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			zap.L().Error("批量写入器错误", zap.Error(err))
		},
	})
	if err != nil {
		return fmt.Errorf("创建批量写入器失败: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			zap.L().Error("序列化文档失败", zap.String("id", doc.GetID()), zap.Error(err))
			continue
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.GetID(),
			Body:       strings.NewReader(string(data)),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					zap.L().Error("写入文档出错", zap.String("id", item.DocumentID), zap.Error(err))
				} else {
					zap.L().Error("写入文档被拒绝", zap.String("id", item.DocumentID), zap.String("reason", res.Error.Reason))
				}
			},
		})
		if err != nil {
			zap.L().Error("添加批量项失败", zap.Error(err))
		}
	}

	// 刷新并关闭批量写入器,确保所有文档都被处理
	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("关闭批量写入器失败: %w", err)
	}

	stats := bi.Stats()
	zap.L().Info("批量写入完成", zap.Uint64("indexed", stats.NumIndexed), zap.Uint64("failed", stats.NumFailed))
	return nil
}
