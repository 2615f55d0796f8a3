package notify

import (
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

// Settings 通知机器人配置
type Settings struct {
	Token  string
	ChatID string
	Client *http.Client
}

// Telegram 目标失败洞察与风险状态的通知出口
type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
}

// NewTelegram 创建通知机器人
func NewTelegram(logger *zap.Logger, settings Settings) (*Telegram, error) {
	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    poller,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "启动机器人"},
		{Text: "/help", Description: "获取帮助信息"},
		{Text: "/status", Description: "查看交易许可状态"},
	})
	if err != nil {
		return nil, err
	}

	return &Telegram{
		logger:   logger,
		settings: settings,
		client:   client,
	}, nil
}

// Start 启动长轮询
func (r *Telegram) Start() {
	go r.client.Start()
}

// Notify 发送Markdown消息到配置的会话
func (r *Telegram) Notify(msg string) error {
	chatID := cast.ToInt64(r.settings.ChatID)
	_, err := r.client.Send(tele.ChatID(chatID), msg, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
