package config

type Config struct {
	Telegram TelegramConf `json:"telegram"`
	Review   ReviewConf   `json:"review"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type ReviewConf struct {
	Enabled         bool `json:"enabled"`          // 是否启用自动复盘循环
	IntervalMinutes int  `json:"interval_minutes"` // 复盘周期（分钟），默认15
}
