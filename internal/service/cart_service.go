package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/cart"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
)

// CartService 购物车服务。行项目价格为加入时的快照价，总额每次变更后
// 服务端重算，从不信任客户端。无锁，单用户购物车按最后写入为准。
type CartService struct {
	carts    cart.Repository
	products product.Repository
}

// NewCartService 创建购物车服务
func NewCartService(carts cart.Repository, products product.Repository) *CartService {
	return &CartService{carts: carts, products: products}
}

// Get 返回用户购物车（不存在时为空车）
func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*cart.Cart, error) {
	return s.carts.GetByUser(ctx, userID)
}

// Count 购物车件数
func (s *CartService) Count(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// AddItem 加购。商品必须存在且在售，否则购物车不动。
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int64) (*cart.Cart, error) {
	if qty < 1 {
		return nil, Invalidf("quantity must be at least 1")
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status != product.StatusActive {
		return nil, product.ErrNotFound
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, cart.Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.EffectivePrice(), // 快照价
			Quantity:  qty,
			AddedAt:   time.Now(),
		})
	}

	c.Recompute()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateItem 改数量，0 表示移除该行
func (s *CartService) UpdateItem(ctx context.Context, userID, productID primitive.ObjectID, qty int64) (*cart.Cart, error) {
	if qty < 0 {
		return nil, Invalidf("quantity must not be negative")
	}
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, product.ErrNotFound
	}

	if qty == 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		c.Items[idx].Quantity = qty
	}

	c.Recompute()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem 移除一行
func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*cart.Cart, error) {
	return s.UpdateItem(ctx, userID, productID, 0)
}

// Clear 清空购物车
func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) error {
	return s.carts.DeleteByUser(ctx, userID)
}
