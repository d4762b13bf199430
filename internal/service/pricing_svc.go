package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// DefaultExchangeRate 未配置或配置无效时使用的汇率（UAH / USD）
const DefaultExchangeRate = 40.0

// ==================== PricingService 价格解析 ====================

// PricingService 汇率与价格派生
// 商品读写、分类树读取、订单金额都必须走这里，避免展示值漂移
type PricingService struct {
	settingRepo repository.SettingRepository
	log         *zap.Logger
}

// NewPricingService 创建价格服务
func NewPricingService(settingRepo repository.SettingRepository, log *zap.Logger) *PricingService {
	return &PricingService{settingRepo: settingRepo, log: log}
}

// ResolveExchangeRate 读取 exchange_rate，缺失、非数字或 <= 0 时回退到默认值
func (s *PricingService) ResolveExchangeRate(ctx context.Context) float64 {
	setting, err := s.settingRepo.Get(ctx, model.SettingExchangeRate)
	if err != nil {
		s.log.Warn("read exchange rate failed, using default", zap.Error(err))
		return DefaultExchangeRate
	}
	if setting == nil {
		return DefaultExchangeRate
	}
	return ParseExchangeRate(setting.Value)
}

// ParseExchangeRate 解析汇率文本，无效值回退到默认值
func ParseExchangeRate(raw string) float64 {
	rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || rate <= 0 {
		return DefaultExchangeRate
	}
	return rate
}

// ComputePriceFields 由美元价派生格里夫纳价
// 旧数据只有格里夫纳价时反推美元价；rate <= 0 按 1 处理
func ComputePriceFields(priceUSD, priceUAH, rate float64) (float64, float64) {
	if rate <= 0 {
		rate = 1
	}
	usd := priceUSD
	if usd <= 0 && priceUAH > 0 {
		usd = priceUAH / rate
	}
	if usd < 0 {
		usd = 0
	}
	return usd, Round2(usd * rate)
}

// ApplyPrice 就地填充商品的两个价格字段
func ApplyPrice(p *model.Product, rate float64) {
	p.PriceUSD, p.PriceUAH = ComputePriceFields(p.PriceUSD, p.PriceUAH, rate)
}

// UAHToUSD 旧格里夫纳金额换算为美元，不取整
func UAHToUSD(uah, rate float64) float64 {
	if rate <= 0 {
		rate = 1
	}
	return uah / rate
}

// Round2 保留两位小数，四舍五入（远离零）
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
