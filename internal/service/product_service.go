package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
)

// ProductService 商品服务。对外读取一律先过变体解析，保证前端拿到的
// 每个颜色变体都有可渲染的图片。
type ProductService struct {
	repo product.Repository
}

// NewProductService 创建商品服务
func NewProductService(repo product.Repository) *ProductService {
	return &ProductService{repo: repo}
}

// ListPublic 前台商品列表（在售且公开）
func (s *ProductService) ListPublic(ctx context.Context) ([]*product.Product, error) {
	list, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		ResolveVariants(p)
	}
	return list, nil
}

// ListAll 后台商品列表
func (s *ProductService) ListAll(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListAll(ctx)
}

// GetBySlug 前台商品详情
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.Status != product.StatusActive || p.Visibility != product.VisibilityPublic {
		return nil, product.ErrNotFound
	}
	ResolveVariants(p)
	return p, nil
}

// GetByID 后台商品详情
func (s *ProductService) GetByID(ctx context.Context, id primitive.ObjectID) (*product.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 创建商品，变体颜色 key 必须唯一
func (s *ProductService) Create(ctx context.Context, p *product.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

// Update 更新商品
func (s *ProductService) Update(ctx context.Context, p *product.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Delete 删除商品。购物车里的引用不做级联清理，结算时兜底校验。
func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.Delete(ctx, id)
}

// AddReview 追加评论（待审核）
func (s *ProductService) AddReview(ctx context.Context, productID primitive.ObjectID, rv *product.Review) error {
	if rv.Rating < 1 || rv.Rating > 5 {
		return Invalidf("rating must be between 1 and 5")
	}
	rv.Status = product.ReviewPending
	return s.repo.AddReview(ctx, productID, rv)
}

// SetReviewStatus 后台审核评论
func (s *ProductService) SetReviewStatus(ctx context.Context, productID, reviewID primitive.ObjectID, status product.ReviewStatus) error {
	switch status {
	case product.ReviewApproved, product.ReviewRejected, product.ReviewPending:
	default:
		return Invalidf("unknown review status: %s", status)
	}
	return s.repo.SetReviewStatus(ctx, productID, reviewID, status)
}

func validateProduct(p *product.Product) error {
	if p.Name == "" {
		return Invalidf("name is required")
	}
	if p.Price < 0 {
		return Invalidf("price must not be negative")
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if p.Status == "" {
		p.Status = product.StatusDraft
	}
	if p.Visibility == "" {
		p.Visibility = product.VisibilityPublic
	}
	seen := make(map[string]struct{}, len(p.ColorVariants))
	for i := range p.ColorVariants {
		v := &p.ColorVariants[i]
		if v.Color == "" {
			v.Color = Slugify(v.Name)
		}
		if v.Color == "" {
			return Invalidf("colorVariants[%d]: color or name is required", i)
		}
		if _, dup := seen[v.Color]; dup {
			return Invalidf("duplicate color variant: %s", v.Color)
		}
		seen[v.Color] = struct{}{}
	}
	return nil
}
