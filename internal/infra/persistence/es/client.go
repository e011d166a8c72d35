package es

import (
	"context"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
)

/*
// 所有的文档结构体要实现这两个函数

	type Document interface {
		GetID() string
		GetIndex() string
	}
*/
type TypedEsClient[D model.Document] interface {
	CreateIndexWithMapping(ctx context.Context) error
	BulkIndexDocsWithID(ctx context.Context, docs []D) error
}
