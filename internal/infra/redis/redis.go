package redis

import (
	"log"
	"sync"

	radix "github.com/mediocregopher/radix/v3"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
)

var (
	client radix.Client
	once   sync.Once
)

// Init 初始化 Redis 连接池
func Init(cfg *config.RedisConfig) radix.Client {
	once.Do(func() {
		pool, err := radix.NewPool("tcp", cfg.Addr, 10)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		client = pool
	})
	return client
}

// Client 获取 Redis 客户端
func Client() radix.Client {
	return client
}

// Publish 向频道广播一条消息，订阅端为实时通知的 WebSocket/SSE 网关。
// 广播失败只返回错误，由调用方决定是否忽略（通知写库成功即为成功）。
func Publish(c radix.Client, channel string, payload []byte) error {
	return c.Do(radix.FlatCmd(nil, "PUBLISH", channel, payload))
}
