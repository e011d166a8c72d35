package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 归档攒批参数:攒够一批或到点就批量写入ES
const (
	archiveBatchSize     = 10
	archiveFlushInterval = 10 * time.Second
)

// Archiver 可选的捕获归档后端(ES),按批写入
type Archiver interface {
	ArchiveCaptures(ctx context.Context, docs []*model.CaptureDoc) error
}

// Consumer 捕获响应的单一消费者
// 驱动侧非阻塞投递,通道满时丢弃并记一次miss,避免消费慢导致内存无限增长
type Consumer struct {
	ch         chan *Response
	source     string
	outputDir  string
	archiver   Archiver
	onResponse func(url string, body []byte)
	pending    []*model.CaptureDoc
}

// InitConsumer 初始化捕获消费者
// outputDir为空则不落盘; archiver为nil则不归档; onResponse可为nil
func InitConsumer(chanSize int, source, outputDir string, archiver Archiver, onResponse func(url string, body []byte)) *Consumer {
	return &Consumer{
		ch:         make(chan *Response, chanSize),
		source:     source,
		outputDir:  outputDir,
		archiver:   archiver,
		onResponse: onResponse,
	}
}

// In 返回供浏览器驱动投递的通道
func (c *Consumer) In() chan<- *Response {
	return c.ch
}

// Run 消费循环,ctx取消后冲刷剩余批次再退出
// 作为独立协程运行,不阻塞主采集流程
func (c *Consumer) Run(ctx context.Context) {
	ticker := time.NewTicker(archiveFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// ctx已取消,收尾冲刷用后台ctx
			c.flush(context.Background())
			zap.L().Debug("捕获消费者退出", zap.String("source", c.source))
			return
		case <-ticker.C:
			c.flush(ctx)
		case resp, ok := <-c.ch:
			if !ok {
				c.flush(ctx)
				return
			}
			c.handle(ctx, resp)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, resp *Response) {
	if resp.Miss {
		zap.L().Debug("响应体不可得,记为miss", zap.String("url", resp.URL))
		return
	}
	category := Classify(resp.URL)
	zap.L().Debug("收到API响应",
		zap.String("url", resp.URL),
		zap.String("category", category),
		zap.Int("bytes", len(resp.Body)))

	if c.outputDir != "" {
		if err := c.writeFile(category, resp.Body); err != nil {
			zap.L().Warn("捕获落盘失败", zap.Error(err))
		}
	}
	if c.archiver != nil {
		c.pending = append(c.pending, &model.CaptureDoc{
			ID:         uuid.NewString(),
			Source:     c.source,
			Endpoint:   category,
			URL:        resp.URL,
			Body:       string(resp.Body),
			CapturedAt: time.Now().UTC(),
		})
		if len(c.pending) >= archiveBatchSize {
			c.flush(ctx)
		}
	}
	if c.onResponse != nil {
		c.onResponse(resp.URL, resp.Body)
	}
}

func (c *Consumer) flush(ctx context.Context) {
	if c.archiver == nil || len(c.pending) == 0 {
		return
	}
	if err := c.archiver.ArchiveCaptures(ctx, c.pending); err != nil {
		zap.L().Warn("捕获归档失败", zap.Int("docs", len(c.pending)), zap.Error(err))
	}
	c.pending = nil
}

func (c *Consumer) writeFile(category string, body []byte) error {
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return err
	}
	name := fmt.Sprintf("api_response_%s_%d.json", category, time.Now().UnixMilli())
	return os.WriteFile(filepath.Join(c.outputDir, name), body, 0644)
}
