package hub

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"blogchat/internal/apperr"
	"blogchat/internal/event"
	"blogchat/internal/model"
)

func TestRouteMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("room message reaches every member including the sender", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob := identity("alice"), identity("bob")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")

		msg, err := f.router.RouteMessage(ctx, alice, a, "hello", "", "")
		req.NoError(err)
		req.Equal(1, f.store.count())
		room, ok := msg.Room()
		req.True(ok)
		req.Equal(model.GlobalRoom, room)

		for _, c := range []*fakeConn{a, b} {
			got := c.named(event.EventNewMessage)
			req.Len(got, 1)
			delivered := decodePayload[model.Message](got[0])
			req.Equal("hello", delivered.Content)
			req.Equal(alice.ID, delivered.Sender.ID)
			req.Equal("alice", delivered.Sender.Username)
		}
	})

	t.Run("named room only reaches its members", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob := identity("alice"), identity("bob")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")
		f.rooms.Join("golang", a)

		_, err := f.router.RouteMessage(ctx, alice, a, "generics?", "golang", "")
		req.NoError(err)
		req.Len(a.named(event.EventNewMessage), 1)
		req.Empty(b.named(event.EventNewMessage))
	})

	t.Run("direct message goes to recipient and sender only", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob, carol := identity("alice"), identity("bob"), identity("carol")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")
		c := f.connect(carol, "c1")

		msg, err := f.router.RouteMessage(ctx, alice, a, "psst", "global", bob.ID)
		req.NoError(err)
		recipient, ok := msg.RecipientID()
		req.True(ok)
		req.Equal(bob.ID, recipient)

		req.Len(a.named(event.EventNewMessage), 1)
		req.Len(b.named(event.EventNewMessage), 1)
		req.Empty(c.named(event.EventNewMessage))
	})

	t.Run("direct message to offline user is stored and echoed", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, carol := identity("alice"), identity("carol")
		a := f.connect(alice, "a1")

		_, err := f.router.RouteMessage(ctx, alice, a, "hello", "", carol.ID)
		req.NoError(err)
		req.Equal(1, f.store.count())
		req.Len(a.named(event.EventNewMessage), 1)
	})

	t.Run("direct message to oneself is delivered once", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice := identity("alice")
		a := f.connect(alice, "a1")

		_, err := f.router.RouteMessage(ctx, alice, a, "note to self", "", alice.ID)
		req.NoError(err)
		req.Len(a.named(event.EventNewMessage), 1)
	})

	t.Run("blank content is rejected before persistence", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob := identity("alice"), identity("bob")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")

		_, err := f.router.RouteMessage(ctx, alice, a, "   \n", "", "")
		req.ErrorIs(err, apperr.ErrValidation)
		req.Zero(f.store.count())
		req.Empty(a.named(event.EventNewMessage))
		req.Empty(b.named(event.EventNewMessage))
	})

	t.Run("store failure delivers nothing", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.store.saveErr = fmt.Errorf("%w: insert message", apperr.ErrPersistence)
		alice := identity("alice")
		a := f.connect(alice, "a1")

		_, err := f.router.RouteMessage(ctx, alice, a, "hello", "", "")
		req.True(errors.Is(err, apperr.ErrPersistence))
		req.Empty(a.named(event.EventNewMessage))
	})
}

func TestMessageMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("edit by sender updates both parties", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob := identity("alice"), identity("bob")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")
		msg, err := f.router.RouteMessage(ctx, alice, a, "helo", "", bob.ID)
		req.NoError(err)

		updated, err := f.router.EditMessage(ctx, alice, a, msg.ID, "hello")
		req.NoError(err)
		req.True(updated.Edited)
		req.NotNil(updated.EditedAt)

		for _, c := range []*fakeConn{a, b} {
			got := c.named(event.EventMessageUpdated)
			req.Len(got, 1)
			req.Equal("hello", decodePayload[model.Message](got[0]).Content)
		}
	})

	t.Run("edit by someone else is forbidden", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob := identity("alice"), identity("bob")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")
		msg, err := f.router.RouteMessage(ctx, alice, a, "hello", "", "")
		req.NoError(err)

		_, err = f.router.EditMessage(ctx, bob, b, msg.ID, "hijacked")
		req.ErrorIs(err, apperr.ErrForbidden)
		req.Empty(a.named(event.EventMessageUpdated))
	})

	t.Run("outsiders cannot touch a direct conversation", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob, carol := identity("alice"), identity("bob"), identity("carol")
		a := f.connect(alice, "a1")
		c := f.connect(carol, "c1")
		msg, err := f.router.RouteMessage(ctx, alice, a, "secret", "", bob.ID)
		req.NoError(err)

		_, err = f.router.AddReaction(ctx, carol, c, msg.ID, "👀")
		req.ErrorIs(err, apperr.ErrForbidden)
	})

	t.Run("reaction and read receipt reach the room", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice, bob := identity("alice"), identity("bob")
		a := f.connect(alice, "a1")
		b := f.connect(bob, "b1")
		msg, err := f.router.RouteMessage(ctx, alice, a, "ship it", "", "")
		req.NoError(err)

		updated, err := f.router.AddReaction(ctx, bob, b, msg.ID, "🚀")
		req.NoError(err)
		req.Len(updated.Reactions, 1)
		req.Equal(bob.ID, updated.Reactions[0].User)

		_, err = f.router.MarkRead(ctx, bob, b, msg.ID)
		req.NoError(err)
		updated, err = f.router.MarkRead(ctx, bob, b, msg.ID)
		req.NoError(err)
		req.Len(updated.ReadBy, 1)

		req.Len(a.named(event.EventMessageUpdated), 3)
		req.Len(b.named(event.EventMessageUpdated), 3)
	})

	t.Run("unknown message", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		alice := identity("alice")
		a := f.connect(alice, "a1")

		_, err := f.router.MarkRead(ctx, alice, a, "6523f0c2a1b2c3d4e5f60718")
		req.ErrorIs(err, apperr.ErrNotFound)
	})
}
