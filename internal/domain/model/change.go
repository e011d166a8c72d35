package model

import "time"

// ChangeEvent 单个盘口字段的一次变化,写入后不可变
type ChangeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	GameKey   string    `json:"game_key"`
	GameLabel string    `json:"game"`
	Market    string    `json:"market"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
}
