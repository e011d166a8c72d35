package detector

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
)

// changeLogHeader 每个日志文件只写一次表头
var changeLogHeader = []string{"timestamp", "game_key", "game", "market", "field", "old_value", "new_value"}

// ChangeLog 按UTC日分桶的只追加变化日志
type ChangeLog struct {
	dir string
	now func() time.Time
}

func InitChangeLog(dir string) (*ChangeLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建变化日志目录失败: %w", err)
	}
	return &ChangeLog{dir: dir, now: time.Now}, nil
}

// Append 把一批事件追加到当日文件,新文件先写表头
func (cl *ChangeLog) Append(events []model.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	path := filepath.Join(cl.dir, "changes_"+cl.now().UTC().Format("2006-01-02")+".csv")

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开变化日志失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(changeLogHeader); err != nil {
			return fmt.Errorf("写入表头失败: %w", err)
		}
	}
	for _, ev := range events {
		record := []string{
			ev.Timestamp.UTC().Format(time.RFC3339),
			ev.GameKey,
			ev.GameLabel,
			ev.Market,
			ev.Field,
			ev.OldValue,
			ev.NewValue,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("写入变化记录失败: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("刷新变化日志失败: %w", err)
	}
	zap.L().Debug("变化日志已追加", zap.String("path", path), zap.Int("events", len(events)))
	return nil
}

// ConsoleSink 把变化事件打到日志的默认告警出口
type ConsoleSink struct{}

func (ConsoleSink) Notify(events []model.ChangeEvent) {
	for _, ev := range events {
		zap.L().Info("盘口变化",
			zap.String("game", ev.GameLabel),
			zap.String("market", ev.Market),
			zap.String("field", ev.Field),
			zap.String("old", ev.OldValue),
			zap.String("new", ev.NewValue),
		)
	}
}
