package es

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/crawleragent/internal/config"
	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
)

// CaptureArchiver 把被拦截的API响应归档到ES,供事后排查站点接口形态变化
type CaptureArchiver struct {
	client TypedEsClient[*model.CaptureDoc]
}

func InitCaptureArchiver(ctx context.Context, cfg *config.Config) (*CaptureArchiver, error) {
	client, err := InitTypedEsClient[*model.CaptureDoc](cfg)
	if err != nil {
		return nil, err
	}
	if err := client.CreateIndexWithMapping(ctx); err != nil {
		return nil, fmt.Errorf("初始化归档索引失败: %w", err)
	}
	return &CaptureArchiver{client: client}, nil
}

// ArchiveCaptures 批量写入一批捕获文档
func (ca *CaptureArchiver) ArchiveCaptures(ctx context.Context, docs []*model.CaptureDoc) error {
	return ca.client.BulkIndexDocsWithID(ctx, docs)
}
