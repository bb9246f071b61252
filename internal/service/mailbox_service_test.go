package service

import (
	"context"
	"testing"
	"time"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/repository"
	"mediroute-data/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisMailbox(t *testing.T) (*MailboxService, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mb := NewMailboxService(repository.NewMemoryNotificationsRepo(), store.NewRedisKV(client), zap.NewNop())
	return mb, mr, client
}

func TestMailboxService_UnreadCountCachedAndInvalidated(t *testing.T) {
	mb, mr, _ := newRedisMailbox(t)
	ctx := context.Background()

	require.NoError(t, mb.Enqueue(ctx, &domain.Notification{DriverEmail: "d@x.com", Status: domain.NotificationAccepted}))

	count, err := mb.UnreadCount(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	cached, err := mr.Get(unreadCountKey("d@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "1", cached)
	assert.Equal(t, unreadCountTTL, mr.TTL(unreadCountKey("d@x.com")))

	// enqueue 使缓存失效
	second := &domain.Notification{DriverEmail: "d@x.com", Status: domain.NotificationDeclined}
	require.NoError(t, mb.Enqueue(ctx, second))
	assert.False(t, mr.Exists(unreadCountKey("d@x.com")))

	count, err = mb.UnreadCount(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// markRead 使缓存失效
	_, err = mb.MarkRead(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(unreadCountKey("d@x.com")))

	count, err = mb.UnreadCount(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMailboxService_CorruptCacheFallsBackToStore(t *testing.T) {
	mb, mr, _ := newRedisMailbox(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(unreadCountKey("d@x.com"), "not-a-number"))

	count, err := mb.UnreadCount(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMailboxService_MarkRead(t *testing.T) {
	mb := NewMailboxService(repository.NewMemoryNotificationsRepo(), nil, zap.NewNop())
	ctx := context.Background()

	n := &domain.Notification{DriverEmail: "d@x.com", Status: domain.NotificationAccepted}
	require.NoError(t, mb.Enqueue(ctx, n))
	assert.False(t, n.CreatedAt.IsZero())

	for i := 0; i < 2; i++ {
		got, err := mb.MarkRead(ctx, n.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
	}

	unread, err := mb.UnreadFor(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Empty(t, unread)

	_, err = mb.MarkRead(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = mb.UnreadFor(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMailboxService_UnreadForNewestFirst(t *testing.T) {
	mb := NewMailboxService(repository.NewMemoryNotificationsRepo(), nil, zap.NewNop())
	mb.now = steppingClock()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		n := &domain.Notification{DriverEmail: "d@x.com", Status: domain.NotificationAccepted}
		require.NoError(t, mb.Enqueue(ctx, n))
		ids = append(ids, n.ID)
	}
	require.NoError(t, mb.Enqueue(ctx, &domain.Notification{DriverEmail: "other@x.com", Status: domain.NotificationAccepted}))

	unread, err := mb.UnreadFor(ctx, "D@X.COM")
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Equal(t, ids[2], unread[0].ID)
	assert.Equal(t, ids[0], unread[2].ID)
}

func TestMailboxService_FlushUnreadCache(t *testing.T) {
	mb, mr, _ := newRedisMailbox(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(unreadCountKey("a@x.com"), "3"))
	require.NoError(t, mr.Set(unreadCountKey("b@x.com"), "1"))
	require.NoError(t, mr.Set("unrelated", "x"))

	n, err := mb.FlushUnreadCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("unrelated"))
}

func TestStreamNotifier_PublishesToStream(t *testing.T) {
	_, mr, client := newRedisMailbox(t)
	ctx := context.Background()

	sn := NewStreamNotifier(client, "", 100)
	n := &domain.Notification{ID: "n-1", DriverEmail: "d@x.com", Status: domain.NotificationAccepted, CreatedAt: time.Now()}
	require.NoError(t, sn.Notify(ctx, n))

	entries, err := mr.Stream(NotificationStream)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values, "data")
}
