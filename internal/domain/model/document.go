package model

import (
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// Document ES归档文档接口
// 所有要写入ES的文档结构体都要实现这组方法
type Document interface {
	*CaptureDoc
	GetID() string
	GetIndex() string
	GetTypeMapping() *types.TypeMapping
}

// CaptureDoc 被拦截API响应的归档文档
// Body保留原始JSON文本,便于事后排查站点接口形态变化
type CaptureDoc struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Endpoint   string    `json:"endpoint"`
	URL        string    `json:"url"`
	Body       string    `json:"body"`
	CapturedAt time.Time `json:"captured_at"`
}

func (cd *CaptureDoc) GetID() string {
	return cd.ID
}

func (cd *CaptureDoc) GetIndex() string {
	return "api_captures"
}

func (cd *CaptureDoc) GetTypeMapping() *types.TypeMapping {
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"id":          types.NewKeywordProperty(),
			"source":      types.NewKeywordProperty(),
			"endpoint":    types.NewKeywordProperty(),
			"url":         types.NewKeywordProperty(),
			"body":        types.NewTextProperty(),
			"captured_at": types.NewDateProperty(),
		},
	}
}
