package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/cart"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/user"
)

// In-memory repository fakes, mirroring the semantics of the mongodb
// implementations closely enough for service-level tests.

// ---------- products ----------

type fakeProductRepo struct {
	items map[primitive.ObjectID]*product.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{items: make(map[primitive.ObjectID]*product.Product)}
}

func (r *fakeProductRepo) GetByID(_ context.Context, id primitive.ObjectID) (*product.Product, error) {
	if p, ok := r.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, product.ErrNotFound
}

func (r *fakeProductRepo) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	for _, p := range r.items {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, product.ErrNotFound
}

func (r *fakeProductRepo) ListPublic(_ context.Context) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range r.items {
		if p.Status == product.StatusActive && p.Visibility == product.VisibilityPublic {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) ListAll(_ context.Context) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range r.items {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = time.Now()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *product.Product) error {
	if _, ok := r.items[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := r.items[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeProductRepo) AddReview(_ context.Context, productID primitive.ObjectID, rv *product.Review) error {
	p, ok := r.items[productID]
	if !ok {
		return product.ErrNotFound
	}
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	rv.CreatedAt = time.Now()
	p.Reviews = append(p.Reviews, *rv)
	return nil
}

func (r *fakeProductRepo) SetReviewStatus(_ context.Context, productID, reviewID primitive.ObjectID, status product.ReviewStatus) error {
	p, ok := r.items[productID]
	if !ok {
		return product.ErrNotFound
	}
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			p.Reviews[i].Status = status
			return nil
		}
	}
	return product.ErrNotFound
}

func (r *fakeProductRepo) CountActive(_ context.Context) (int64, error) {
	var n int64
	for _, p := range r.items {
		if p.Status == product.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeProductRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, p := range r.items {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *fakeProductRepo) ReviewStatsBetween(_ context.Context, from, to time.Time) (*product.ReviewStats, error) {
	stats := &product.ReviewStats{}
	var sum int64
	for _, p := range r.items {
		for _, rv := range p.Reviews {
			if rv.Status != product.ReviewApproved {
				continue
			}
			if rv.CreatedAt.Before(from) || !rv.CreatedAt.Before(to) {
				continue
			}
			stats.Count++
			sum += int64(rv.Rating)
		}
	}
	if stats.Count > 0 {
		stats.AvgRating = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}

func (r *fakeProductRepo) ListLowStock(_ context.Context, threshold int64) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range r.items {
		if p.Status == product.StatusActive && p.Stock <= threshold {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------- carts ----------

type fakeCartRepo struct {
	carts map[primitive.ObjectID]*cart.Cart
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[primitive.ObjectID]*cart.Cart)}
}

func (r *fakeCartRepo) GetByUser(_ context.Context, userID primitive.ObjectID) (*cart.Cart, error) {
	if c, ok := r.carts[userID]; ok {
		cp := *c
		cp.Items = append([]cart.Item(nil), c.Items...)
		return &cp, nil
	}
	return &cart.Cart{UserID: userID, Items: []cart.Item{}}, nil
}

func (r *fakeCartRepo) Save(_ context.Context, c *cart.Cart) error {
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	r.carts[c.UserID] = &cp
	return nil
}

func (r *fakeCartRepo) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	delete(r.carts, userID)
	return nil
}

// ---------- orders ----------

type fakeOrderRepo struct {
	orders []*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*order.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*order.Order, error) {
	var out []*order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]*order.Order, error) {
	want := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []*order.Order
	for _, o := range r.orders {
		if _, ok := want[o.ID]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListRecent(_ context.Context, limit int) ([]*order.Order, error) {
	out := make([]*order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status order.Status) error {
	for _, o := range r.orders {
		if o.ID == id {
			o.Status = status
			o.UpdatedAt = time.Now()
			return nil
		}
	}
	return order.ErrNotFound
}

func (r *fakeOrderRepo) CountBetween(_ context.Context, from, to time.Time, excludeCancelled bool) (int64, error) {
	var n int64
	for _, o := range r.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if excludeCancelled && o.Status == order.StatusCancelled {
			continue
		}
		n++
	}
	return n, nil
}

func (r *fakeOrderRepo) RevenueBetween(_ context.Context, from, to time.Time) (float64, error) {
	var total float64
	for _, o := range r.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if o.Status == order.StatusCancelled {
			continue
		}
		total += o.Total
	}
	return total, nil
}

func (r *fakeOrderRepo) StatsByDay(_ context.Context, from, to time.Time) (map[string]order.DayStat, error) {
	out := make(map[string]order.DayStat)
	for _, o := range r.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if o.Status == order.StatusCancelled {
			continue
		}
		key := o.CreatedAt.Format("2006-01-02")
		stat := out[key]
		stat.Orders++
		stat.Revenue += o.Total
		out[key] = stat
	}
	return out, nil
}

func (r *fakeOrderRepo) TopProducts(_ context.Context, _, _ time.Time, _ int) ([]order.TopProduct, error) {
	return nil, nil
}

// ---------- payments ----------

type fakePaymentRepo struct {
	payments map[primitive.ObjectID]*payment.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[primitive.ObjectID]*payment.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = time.Now()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetForUser(_ context.Context, id, userID primitive.ObjectID) (*payment.Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.UserID != userID {
		return nil, payment.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return payment.ErrNotFound
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) LinkedOrderIDs(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]struct{})
	var out []primitive.ObjectID
	for _, p := range r.payments {
		if p.UserID == userID && p.Linked() {
			if _, ok := seen[p.OrderID]; !ok {
				seen[p.OrderID] = struct{}{}
				out = append(out, p.OrderID)
			}
		}
	}
	return out, nil
}

// ---------- notifications ----------

type fakeNotificationRepo struct {
	items map[primitive.ObjectID]*notification.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[primitive.ObjectID]*notification.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = time.Now()
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id primitive.ObjectID) (*notification.Notification, error) {
	if n, ok := r.items[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, errNotificationMissing
}

var errNotificationMissing = errors.New("notification not found")

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID primitive.ObjectID, _ int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for _, n := range r.items {
		if n.UserID != nil && *n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) ListAdmin(_ context.Context, _ int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for _, n := range r.items {
		if n.ForAdmins() {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	var n int64
	for _, id := range ids {
		if item, ok := r.items[id]; ok && item.UserID != nil && *item.UserID == userID && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkAdminRead(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	var n int64
	for _, id := range ids {
		if item, ok := r.items[id]; ok && item.ForAdmins() && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

// ---------- tickets ----------

type fakeTicketRepo struct {
	tickets map[string]*ticket.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*ticket.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, t *ticket.Ticket) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.CreatedAt = time.Now()
	cp := *t
	r.tickets[t.TicketID] = &cp
	return nil
}

func (r *fakeTicketRepo) GetByTicketID(_ context.Context, ticketID string) (*ticket.Ticket, error) {
	if t, ok := r.tickets[ticketID]; ok {
		cp := *t
		cp.Replies = append([]ticket.Reply(nil), t.Replies...)
		return &cp, nil
	}
	return nil, ticket.ErrNotFound
}

func (r *fakeTicketRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*ticket.Ticket, error) {
	var out []*ticket.Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) ListAll(_ context.Context) ([]*ticket.Ticket, error) {
	var out []*ticket.Ticket
	for _, t := range r.tickets {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, t *ticket.Ticket) error {
	if _, ok := r.tickets[t.TicketID]; !ok {
		return ticket.ErrNotFound
	}
	cp := *t
	cp.Replies = append([]ticket.Reply(nil), t.Replies...)
	r.tickets[t.TicketID] = &cp
	return nil
}

// ---------- users ----------

type fakeUserRepo struct {
	users map[primitive.ObjectID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*user.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, u := range r.users {
		if !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type fakeAdminRepo struct {
	admins map[primitive.ObjectID]*user.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: make(map[primitive.ObjectID]*user.Admin)}
}

func (r *fakeAdminRepo) Create(_ context.Context, a *user.Admin) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now()
	cp := *a
	r.admins[a.ID] = &cp
	return nil
}

func (r *fakeAdminRepo) GetByID(_ context.Context, id primitive.ObjectID) (*user.Admin, error) {
	if a, ok := r.admins[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, user.ErrNotFound
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*user.Admin, error) {
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}
