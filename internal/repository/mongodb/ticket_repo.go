package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
)

type ticketRepo struct {
	coll *mongo.Collection
}

// NewTicketRepository 创建工单仓储
func NewTicketRepository(db *mongo.Database) ticket.Repository {
	return &ticketRepo{coll: db.Collection("tickets")}
}

func (r *ticketRepo) Create(ctx context.Context, t *ticket.Ticket) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

func (r *ticketRepo) GetByTicketID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	var t ticket.Ticket
	if err := r.coll.FindOne(ctx, bson.M{"ticketId": ticketID}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ticket.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*ticket.Ticket, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

func (r *ticketRepo) ListAll(ctx context.Context) ([]*ticket.Ticket, error) {
	return r.list(ctx, bson.M{})
}

func (r *ticketRepo) list(ctx context.Context, filter bson.M) ([]*ticket.Ticket, error) {
	cur, err := r.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var list []*ticket.Ticket
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ticketRepo) Update(ctx context.Context, t *ticket.Ticket) error {
	t.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ticket.ErrNotFound
	}
	return nil
}
