package product

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound 商品不存在或不可见
var ErrNotFound = errors.New("product not found")

// Status 商品状态
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

// Visibility 商品可见性
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ReviewStatus 评论审核状态
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review 内嵌在商品文档中的评论
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId,omitempty" json:"userId"`
	Author    string             `bson:"author" json:"author"`
	Rating    int                `bson:"rating" json:"rating"` // 1~5
	Comment   string             `bson:"comment" json:"comment"`
	Status    ReviewStatus       `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// ImageList 图片地址列表。历史数据里条目既可能是纯字符串，也可能是
// 带 url/src/image/path 字段的对象，反序列化时统一成字符串并丢弃
// 无法识别的条目。
type ImageList []string

func (l *ImageList) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s := NormalizeImageEntry(entry); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// NormalizeImageEntry 把单个图片条目统一成字符串地址，识别不了返回空串
func NormalizeImageEntry(entry interface{}) string {
	switch v := entry.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		for _, key := range []string{"url", "src", "image", "path"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// ColorVariant 颜色变体。Images 为空时由 variant 解析逻辑从图库补齐。
// Price/Stock/SKU 为可选覆盖项，nil 表示沿用商品本体字段。
type ColorVariant struct {
	Color  string   `bson:"color" json:"color"` // 颜色 key，同一商品内唯一
	Name   string   `bson:"name" json:"name"`
	Code   string   `bson:"code" json:"code"` // hex，例如 #1f2a44
	Images ImageList `bson:"images" json:"images"`
	Price  *float64 `bson:"price,omitempty" json:"price,omitempty"`
	Stock  *int64   `bson:"stock,omitempty" json:"stock,omitempty"`
	SKU    string   `bson:"sku,omitempty" json:"sku,omitempty"`
}

// Product 商品文档
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug          string             `bson:"slug" json:"slug"`
	SKU           string             `bson:"sku" json:"sku"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Price         float64            `bson:"price" json:"price"`
	SalePrice     float64            `bson:"salePrice,omitempty" json:"salePrice,omitempty"`
	Stock         int64              `bson:"stock" json:"stock"`
	Status        Status             `bson:"status" json:"status"`
	Visibility    Visibility         `bson:"visibility" json:"visibility"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"` // 主图
	GalleryImages ImageList          `bson:"galleryImages" json:"galleryImages"`
	ColorVariants []ColorVariant     `bson:"colorVariants" json:"colorVariants"`
	Reviews       []Review           `bson:"reviews" json:"reviews"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// EffectivePrice 促销价优先
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.Price {
		return p.SalePrice
	}
	return p.Price
}

// ReviewStats 时间窗内的评论统计（审核通过的评论）
type ReviewStats struct {
	Count     int64   `json:"count"`
	AvgRating float64 `json:"avgRating"`
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	ListPublic(ctx context.Context) ([]*Product, error) // active + public
	ListAll(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddReview(ctx context.Context, productID primitive.ObjectID, r *Review) error
	SetReviewStatus(ctx context.Context, productID, reviewID primitive.ObjectID, status ReviewStatus) error
	CountActive(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	ReviewStatsBetween(ctx context.Context, from, to time.Time) (*ReviewStats, error)
	ListLowStock(ctx context.Context, threshold int64) ([]*Product, error)
}
