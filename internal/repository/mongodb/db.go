package mongodb

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
)

var (
	client *mongo.Client
	db     *mongo.Database
	once   sync.Once
)

// Init 初始化全局 Mongo 连接并建索引
func Init(cfg *config.MongoConfig) *mongo.Database {
	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			log.Fatalf("failed to connect mongodb: %v", err)
		}
		if err = c.Ping(ctx, nil); err != nil {
			log.Fatalf("failed to ping mongodb: %v", err)
		}
		client = c
		db = c.Database(cfg.Database)

		if err = ensureIndexes(ctx, db); err != nil {
			log.Fatalf("failed to ensure indexes: %v", err)
		}
	})
	return db
}

// Client 获取全局 Mongo 客户端（事务需要）
func Client() *mongo.Client {
	return client
}

// DB 获取全局数据库
func DB() *mongo.Database {
	return db
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := []struct {
		coll string
		keys bson.D
		opts *options.IndexOptions
	}{
		{"products", bson.D{{Key: "slug", Value: 1}}, unique},
		{"products", bson.D{{Key: "status", Value: 1}}, nil},
		{"carts", bson.D{{Key: "userId", Value: 1}}, unique},
		{"orders", bson.D{{Key: "orderNumber", Value: 1}}, unique},
		{"orders", bson.D{{Key: "userId", Value: 1}}, nil},
		{"orders", bson.D{{Key: "createdAt", Value: -1}}, nil},
		{"payments", bson.D{{Key: "providerOrderId", Value: 1}}, unique},
		{"payments", bson.D{{Key: "userId", Value: 1}}, nil},
		{"notifications", bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, nil},
		{"tickets", bson.D{{Key: "ticketId", Value: 1}}, unique},
		{"tickets", bson.D{{Key: "userId", Value: 1}}, nil},
		{"users", bson.D{{Key: "email", Value: 1}}, unique},
		{"admins", bson.D{{Key: "email", Value: 1}}, unique},
	}
	for _, s := range specs {
		model := mongo.IndexModel{Keys: s.keys}
		if s.opts != nil {
			model.Options = s.opts
		}
		if _, err := db.Collection(s.coll).Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}
