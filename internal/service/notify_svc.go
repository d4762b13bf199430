package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// ==================== TelegramNotifier 新订单通知 ====================

// TelegramConfig 机器人凭证，settings 表中的同名键优先
type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIBase  string
}

// TelegramNotifier 通过 Bot API 推送新订单
type TelegramNotifier struct {
	client      *resty.Client
	settingRepo repository.SettingRepository
	config      TelegramConfig
	log         *zap.Logger
}

// NewTelegramNotifier client 为空时按 APIBase 创建
func NewTelegramNotifier(cfg TelegramConfig, settingRepo repository.SettingRepository, client *resty.Client, log *zap.Logger) *TelegramNotifier {
	if client == nil {
		base := cfg.APIBase
		if base == "" {
			base = "https://api.telegram.org"
		}
		client = resty.New().
			SetBaseURL(base).
			SetTimeout(10 * time.Second)
	}
	return &TelegramNotifier{
		client:      client,
		settingRepo: settingRepo,
		config:      cfg,
		log:         log,
	}
}

type telegramResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NotifyOrderCreated 未配置凭证时跳过
func (n *TelegramNotifier) NotifyOrderCreated(ctx context.Context, order *model.Order) error {
	token, chatID := n.credentials(ctx)
	if token == "" || chatID == "" {
		n.log.Debug("telegram credentials not set, skipping notification", zap.Int64("order_id", order.ID))
		return nil
	}

	var result telegramResp
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": chatID,
			"text":    FormatOrderMessage(order),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() || !result.OK {
		msg := result.Description
		if msg == "" {
			msg = resp.Status()
		}
		return fmt.Errorf("telegram send: %s", msg)
	}
	return nil
}

func (n *TelegramNotifier) credentials(ctx context.Context) (string, string) {
	token, chatID := n.config.BotToken, n.config.ChatID
	if n.settingRepo != nil {
		if s, err := n.settingRepo.Get(ctx, model.SettingTelegramBotToken); err == nil && s != nil && strings.TrimSpace(s.Value) != "" {
			token = strings.TrimSpace(s.Value)
		}
		if s, err := n.settingRepo.Get(ctx, model.SettingTelegramChatID); err == nil && s != nil && strings.TrimSpace(s.Value) != "" {
			chatID = strings.TrimSpace(s.Value)
		}
	}
	// 模板占位值视为未配置
	if strings.Contains(token, "YOUR_") {
		token = ""
	}
	return token, chatID
}

// FormatOrderMessage 通知正文
func FormatOrderMessage(order *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New Order #%d\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName())
	fmt.Fprintf(&b, "Phone: %s\n", order.CustomerPhone)
	fmt.Fprintf(&b, "Total: $%.2f (%.2f UAH)\n", order.TotalUSD, order.TotalUAH)
	fmt.Fprintf(&b, "Delivery: %s, %s\n", order.DeliveryCity, order.DeliveryBranch)
	fmt.Fprintf(&b, "Payment: %s\n", order.PaymentMethod)
	b.WriteString("Items:\n")
	for _, it := range order.Items {
		name := it.ProductName
		if name == "" {
			name = it.ProductID
		}
		fmt.Fprintf(&b, "- %s [%s] x%d ($%.2f)\n", name, it.ProductID, it.Quantity, it.PriceAtPurchase)
	}
	return b.String()
}
