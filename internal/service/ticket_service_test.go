package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
)

func newTicketFixture() (*TicketService, *fakeTicketRepo) {
	repo := newFakeTicketRepo()
	return NewTicketService(repo, nil), repo
}

func TestTicketCreateDefaults(t *testing.T) {
	svc, _ := newTicketFixture()
	userID := primitive.NewObjectID()

	tk, err := svc.Create(context.Background(), userID, "Broken zipper", "The zipper broke after one wash.", "")
	require.NoError(t, err)

	assert.Equal(t, ticket.StatusOpen, tk.Status)
	assert.Equal(t, ticket.PriorityMedium, tk.Priority)
	assert.Equal(t, userID, tk.UserID)
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, tk.TicketID)
}

func TestTicketCreateValidation(t *testing.T) {
	svc, _ := newTicketFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	var ve *ValidationError
	_, err := svc.Create(ctx, userID, "", "body", "")
	assert.ErrorAs(t, err, &ve)

	_, err = svc.Create(ctx, userID, "subject", "body", ticket.Priority("whenever"))
	assert.ErrorAs(t, err, &ve)
}

func TestTicketAdminReplyMovesOpenToInProgress(t *testing.T) {
	svc, _ := newTicketFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	adminID := primitive.NewObjectID()

	tk, err := svc.Create(ctx, userID, "Where is my order", "Ordered a week ago.", ticket.PriorityHigh)
	require.NoError(t, err)
	require.Equal(t, ticket.StatusOpen, tk.Status)

	tk, err = svc.Reply(ctx, tk, adminID, "support", "Looking into it.", true)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, tk.Status)
	require.Len(t, tk.Replies, 1)
	assert.True(t, tk.Replies[0].IsAdmin)

	// 第二条管理员回复不再改状态
	tk, err = svc.Reply(ctx, tk, adminID, "support", "Shipped today.", true)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, tk.Status)
	assert.Len(t, tk.Replies, 2)
}

func TestTicketUserReplyKeepsStatus(t *testing.T) {
	svc, _ := newTicketFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	tk, err := svc.Create(ctx, userID, "Question", "Which size fits?", "")
	require.NoError(t, err)

	tk, err = svc.Reply(ctx, tk, userID, "asha@example.com", "Adding more detail.", false)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusOpen, tk.Status)
}

func TestTicketGetEnforcesOwnership(t *testing.T) {
	svc, _ := newTicketFixture()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	tk, err := svc.Create(ctx, owner, "Subject", "Body", "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, tk.TicketID)
	require.NoError(t, err)
	assert.Equal(t, tk.TicketID, got.TicketID)

	_, err = svc.Get(ctx, primitive.NewObjectID(), tk.TicketID)
	assert.ErrorIs(t, err, ticket.ErrNotFound)
}

func TestTicketSetStatus(t *testing.T) {
	svc, _ := newTicketFixture()
	ctx := context.Background()

	tk, err := svc.Create(ctx, primitive.NewObjectID(), "Subject", "Body", "")
	require.NoError(t, err)

	tk, err = svc.SetStatus(ctx, tk.TicketID, ticket.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusResolved, tk.Status)

	var ve *ValidationError
	_, err = svc.SetStatus(ctx, tk.TicketID, ticket.Status("done-ish"))
	assert.ErrorAs(t, err, &ve)

	_, err = svc.SetStatus(ctx, "TKT-DEADBEEF", ticket.StatusClosed)
	assert.ErrorIs(t, err, ticket.ErrNotFound)
}
