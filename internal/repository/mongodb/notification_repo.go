package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
)

type notificationRepo struct {
	coll *mongo.Collection
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *mongo.Database) notification.Repository {
	return &notificationRepo{coll: db.Collection("notifications")}
}

func (r *notificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	n.CreatedAt = time.Now()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

func (r *notificationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*notification.Notification, error) {
	var n notification.Notification
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*notification.Notification, error) {
	return r.list(ctx, bson.M{"userId": userID}, limit)
}

// ListAdmin 管理端广播（userId 为空的文档）
func (r *notificationRepo) ListAdmin(ctx context.Context, limit int) ([]*notification.Notification, error) {
	return r.list(ctx, bson.M{"userId": bson.M{"$exists": false}}, limit)
}

func (r *notificationRepo) list(ctx context.Context, filter bson.M, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := r.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	var list []*notification.Notification
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	filter := bson.M{"userId": userID}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *notificationRepo) MarkAdminRead(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	filter := bson.M{"userId": bson.M{"$exists": false}}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
