package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/user"
)

// 周期取值与对应窗口长度
var periodWindows = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// lowStockThreshold 库存预警阈值
const lowStockThreshold = 5

// Growth 环比增长百分比（四舍五入取整）。前期为 0 时：当前有量记 100，
// 否则记 0 —— 宁可显示"从零起步 100%"也不除零。
func Growth(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}

// Metric 单个指标：当前窗口值 + 环比增长
type Metric struct {
	Value  float64 `json:"value"`
	Growth int     `json:"growth"`
}

// DashboardStats 看板核心指标
type DashboardStats struct {
	Period         string  `json:"period"`
	ActiveProducts int64   `json:"activeProducts"`
	TotalCustomers int64   `json:"totalCustomers"`
	Orders         Metric  `json:"orders"`
	Revenue        Metric  `json:"revenue"`
	Customers      Metric  `json:"customers"`
	NewProducts    Metric  `json:"newProducts"`
	Reviews        Metric  `json:"reviews"`
	AvgRating      float64 `json:"avgRating"`
}

// ChartPoint 按天聚合的图表点位
type ChartPoint struct {
	Day     string  `json:"day"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// Analytics 图表点位加窗口合计
type Analytics struct {
	Period       string       `json:"period"`
	Points       []ChartPoint `json:"points"`
	TotalOrders  int64        `json:"totalOrders"`
	TotalRevenue float64      `json:"totalRevenue"`
}

// DashboardService 后台看板聚合。与其余服务不同，这里刻意吞掉内部
// 错误并回零值，换取前端永远可渲染；失败与否通过返回的 err 提示
// 路由层降级 success 标记。
type DashboardService struct {
	products product.Repository
	orders   order.Repository
	users    user.Repository
}

// NewDashboardService 创建看板服务
func NewDashboardService(products product.Repository, orders order.Repository, users user.Repository) *DashboardService {
	return &DashboardService{products: products, orders: orders, users: users}
}

// windows 当前窗口与等长的前一窗口
func windows(period string) (curFrom, curTo, prevFrom, prevTo time.Time, ok bool) {
	w, ok := periodWindows[period]
	if !ok {
		return
	}
	now := time.Now()
	return now.Add(-w), now, now.Add(-2 * w), now.Add(-w), true
}

// Stats 核心指标。返回的 error 非 nil 表示有查询失败、数据不完整。
func (s *DashboardService) Stats(ctx context.Context, period string) (*DashboardStats, error) {
	stats := &DashboardStats{Period: period}
	curFrom, curTo, prevFrom, prevTo, ok := windows(period)
	if !ok {
		return stats, Invalidf("unknown period: %s", period)
	}

	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
		GetMonitor().RecordDBError()
		zap.L().Warn("dashboard query failed", zap.Error(err))
	}

	if n, err := s.products.CountActive(ctx); err != nil {
		fail(err)
	} else {
		stats.ActiveProducts = n
	}

	if n, err := s.users.Count(ctx); err != nil {
		fail(err)
	} else {
		stats.TotalCustomers = n
	}

	if cur, err := s.products.CountCreatedBetween(ctx, curFrom, curTo); err != nil {
		fail(err)
	} else if prev, err := s.products.CountCreatedBetween(ctx, prevFrom, prevTo); err != nil {
		fail(err)
	} else {
		stats.NewProducts = Metric{Value: float64(cur), Growth: Growth(float64(cur), float64(prev))}
	}

	if cur, err := s.orders.CountBetween(ctx, curFrom, curTo, true); err != nil {
		fail(err)
	} else if prev, err := s.orders.CountBetween(ctx, prevFrom, prevTo, true); err != nil {
		fail(err)
	} else {
		stats.Orders = Metric{Value: float64(cur), Growth: Growth(float64(cur), float64(prev))}
	}

	if cur, err := s.orders.RevenueBetween(ctx, curFrom, curTo); err != nil {
		fail(err)
	} else if prev, err := s.orders.RevenueBetween(ctx, prevFrom, prevTo); err != nil {
		fail(err)
	} else {
		stats.Revenue = Metric{Value: cur, Growth: Growth(cur, prev)}
	}

	if cur, err := s.users.CountCreatedBetween(ctx, curFrom, curTo); err != nil {
		fail(err)
	} else if prev, err := s.users.CountCreatedBetween(ctx, prevFrom, prevTo); err != nil {
		fail(err)
	} else {
		stats.Customers = Metric{Value: float64(cur), Growth: Growth(float64(cur), float64(prev))}
	}

	if cur, err := s.products.ReviewStatsBetween(ctx, curFrom, curTo); err != nil {
		fail(err)
	} else if prev, err := s.products.ReviewStatsBetween(ctx, prevFrom, prevTo); err != nil {
		fail(err)
	} else {
		stats.Reviews = Metric{
			Value:  float64(cur.Count),
			Growth: Growth(float64(cur.Count), float64(prev.Count)),
		}
		stats.AvgRating = cur.AvgRating
	}

	return stats, firstErr
}

// Charts 按天的订单量与营收曲线，缺数据的天补零
func (s *DashboardService) Charts(ctx context.Context, period string) ([]ChartPoint, error) {
	curFrom, curTo, _, _, ok := windows(period)
	if !ok {
		return nil, Invalidf("unknown period: %s", period)
	}
	byDay, err := s.orders.StatsByDay(ctx, curFrom, curTo)
	if err != nil {
		GetMonitor().RecordDBError()
		return []ChartPoint{}, err
	}
	var points []ChartPoint
	for d := curFrom.Truncate(24 * time.Hour); d.Before(curTo); d = d.Add(24 * time.Hour) {
		key := d.Format("2006-01-02")
		stat := byDay[key]
		points = append(points, ChartPoint{Day: key, Orders: stat.Orders, Revenue: stat.Revenue})
	}
	return points, nil
}

// Analytics 图表点位加合计，供后台趋势页一次拉取
func (s *DashboardService) Analytics(ctx context.Context, period string) (*Analytics, error) {
	points, err := s.Charts(ctx, period)
	if err != nil {
		return nil, err
	}
	out := &Analytics{Period: period, Points: points}
	for _, p := range points {
		out.TotalOrders += p.Orders
		out.TotalRevenue += p.Revenue
	}
	return out, nil
}

// TopProducts 周期内销量 TOP
func (s *DashboardService) TopProducts(ctx context.Context, period string, limit int) ([]order.TopProduct, error) {
	curFrom, curTo, _, _, ok := windows(period)
	if !ok {
		return nil, Invalidf("unknown period: %s", period)
	}
	rows, err := s.orders.TopProducts(ctx, curFrom, curTo, limit)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return rows, nil
}

// Alerts 低库存预警
func (s *DashboardService) Alerts(ctx context.Context) ([]*product.Product, error) {
	list, err := s.products.ListLowStock(ctx, lowStockThreshold)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return list, nil
}

// Complete 一次性取全量看板数据
type CompleteDashboard struct {
	Stats       *DashboardStats    `json:"stats"`
	Charts      []ChartPoint       `json:"charts"`
	TopProducts []order.TopProduct `json:"topProducts"`
	Alerts      []*product.Product `json:"alerts"`
}

// Complete 聚合全部看板数据，任何一块失败都降级为零值
func (s *DashboardService) Complete(ctx context.Context, period string) (*CompleteDashboard, error) {
	out := &CompleteDashboard{}
	var firstErr error

	stats, err := s.Stats(ctx, period)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	out.Stats = stats

	if out.Charts, err = s.Charts(ctx, period); err != nil && firstErr == nil {
		firstErr = err
	}
	if out.TopProducts, err = s.TopProducts(ctx, period, 5); err != nil && firstErr == nil {
		firstErr = err
	}
	if out.Alerts, err = s.Alerts(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return out, firstErr
}
