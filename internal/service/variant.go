package service

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
)

// ResolveVariants 为商品的每个颜色变体补齐展示数据：名称、颜色 key、
// 色值、图片。图库非空时保证每个变体至少分到一张图；图库为空则保持
// 空图片列表，不报错。这是尽力而为的启发式分配，不保证变体和图片的
// 语义对应关系。
func ResolveVariants(p *product.Product) {
	if p == nil || len(p.ColorVariants) == 0 {
		return
	}

	pool := imagePool(p)

	for i := range p.ColorVariants {
		v := &p.ColorVariants[i]

		// 名称回退链：显式名称 -> 颜色 key
		if v.Name == "" {
			v.Name = v.Color
		}
		if v.Color == "" {
			v.Color = Slugify(v.Name)
		}
		if v.Code == "" {
			v.Code = ColorFromName(v.Color)
		}

		v.Images = dropEmpty(v.Images)
		if len(v.Images) > 0 || len(pool) == 0 {
			continue
		}

		// 优先按名称/key 与图片地址做子串匹配
		if matched := matchByName(pool, v.Name, v.Color); len(matched) > 0 {
			v.Images = matched
			continue
		}

		// 否则按下标切一段连续的图库区间
		per := int(math.Ceil(float64(len(pool)) / float64(len(p.ColorVariants))))
		start := i * per
		if start < len(pool) {
			end := start + per
			if end > len(pool) {
				end = len(pool)
			}
			v.Images = append([]string(nil), pool[start:end]...)
			continue
		}

		// 变体多于图片时循环取图
		v.Images = []string{pool[i%len(pool)]}
	}
}

// imagePool 主图在前、图库在后的去重图片池
func imagePool(p *product.Product) []string {
	seen := make(map[string]struct{})
	var pool []string
	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		pool = append(pool, url)
	}
	add(p.Image)
	for _, url := range p.GalleryImages {
		add(url)
	}
	return pool
}

// matchByName 在图片地址里找变体名称/颜色 key 的子串（双方都压成
// 纯小写字母数字后比较）
func matchByName(pool []string, name, color string) []string {
	needles := []string{normalizeToken(name), normalizeToken(color)}
	var matched []string
	for _, url := range pool {
		haystack := normalizeToken(url)
		for _, needle := range needles {
			if needle != "" && strings.Contains(haystack, needle) {
				matched = append(matched, url)
				break
			}
		}
	}
	return matched
}

// normalizeToken 压成小写并去掉所有非字母数字字符
func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slugify 生成 url 安全的小写 key，例如 "Navy Blue" -> "navy-blue"
func Slugify(s string) string {
	var b strings.Builder
	prevDash := true // 抑制开头的 -
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteRune('-')
				prevDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ColorFromName 没有显式色值时由名称确定性地生成一个可复现的色值：
// 名称哈希映射到 HSL 色相，饱和度/亮度固定，再转成 hex。
func ColorFromName(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	hue := float64(h.Sum32() % 360)
	r, g, b := hslToRGB(hue, 0.65, 0.5)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return uint8(math.Round((r + m) * 255)),
		uint8(math.Round((g + m) * 255)),
		uint8(math.Round((b + m) * 255))
}

func dropEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
