// Package storage 赔率快照持久化
// 两种后端: 嵌入式sqlite(无限保留)和redis(固定TTL过期)
// 调用方不得假设两种后端的保留策略一致
package storage

import "context"

// OddsStore 变化检测器使用的存储能力集
type OddsStore interface {
	// GetPrevious 读取上一轮的市场快照,未命中不是错误(found=false)
	GetPrevious(ctx context.Context, gameKey string) (odds []byte, found bool, err error)
	// Store 无条件覆盖当前市场快照
	Store(ctx context.Context, gameKey string, odds []byte) error
	Close() error
}
