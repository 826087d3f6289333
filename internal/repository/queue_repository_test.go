package repository

import (
	"testing"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueFixture struct {
	db       *testDB
	repo     *QueueRepository
	schedule *ScheduleEntity
	clients  []*ClientEntity
}

func newQueueFixture(t *testing.T, clients int) *queueFixture {
	db := setupTestDB(t)
	c := seedCampaign(t, db, "queue")
	tpl := seedTemplate(t, db, "t")
	return &queueFixture{
		db:       db,
		repo:     NewQueueRepository(db.DB),
		schedule: seedSchedule(t, db, c.ID, tpl.ID, model.NewDate(2026, 1, 2), 1, clients),
		clients:  seedClients(t, db, c.ID, clients),
	}
}

func TestQueueRepository_BulkCreate(t *testing.T) {
	f := newQueueFixture(t, 3)
	ctx := ctxBg()

	entries := make([]*model.QueueEntry, len(f.clients))
	for i, cl := range f.clients {
		entries[i] = &model.QueueEntry{
			CampaignID:  f.schedule.CampaignID,
			ScheduleID:  f.schedule.ID,
			ClientID:    cl.ID,
			TemplateID:  f.schedule.TemplateID,
			ClientName:  cl.Name,
			ClientEmail: cl.Email,
			Subject:     "s",
			BodyHTML:    "<p>b</p>",
			BodyText:    "b",
			Status:      model.QueueStatusPending,
			ScheduledAt: testNow,
			MaxRetries:  model.DefaultMaxRetries,
		}
	}

	affected, err := f.repo.BulkCreate(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NotZero(t, entries[2].ID)

	// one entry per client per schedule
	_, err = f.repo.BulkCreate(ctx, entries[:1])
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestQueueRepository_Selection(t *testing.T) {
	f := newQueueFixture(t, 5)
	ctx := ctxBg()

	due := seedQueue(t, f.db, f.schedule, f.clients[0], model.QueueStatusPending, 0)
	queued := seedQueue(t, f.db, f.schedule, f.clients[1], model.QueueStatusQueued, 1)
	exhausted := seedQueue(t, f.db, f.schedule, f.clients[2], model.QueueStatusPending, 3)
	retryable := seedQueue(t, f.db, f.schedule, f.clients[3], model.QueueStatusFailed, 2)
	deadFailed := seedQueue(t, f.db, f.schedule, f.clients[4], model.QueueStatusFailed, 3)

	t.Run("pending excludes exhausted and future", func(t *testing.T) {
		list, err := f.repo.ListPending(ctx, testNow, 10)
		require.NoError(t, err)
		ids := entryIDs(list)
		assert.ElementsMatch(t, []int64{due.ID, queued.ID}, ids)
		assert.NotContains(t, ids, exhausted.ID)

		list, err = f.repo.ListPending(ctx, f.schedule.ScheduleDate.StartOfDay(time.UTC).Add(-time.Second), 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("pending honours limit", func(t *testing.T) {
		list, err := f.repo.ListPending(ctx, testNow, 1)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("retryable excludes exhausted", func(t *testing.T) {
		list, err := f.repo.ListRetryable(ctx, 10)
		require.NoError(t, err)
		ids := entryIDs(list)
		assert.Equal(t, []int64{retryable.ID}, ids)
		assert.NotContains(t, ids, deadFailed.ID)
	})

	t.Run("list filters", func(t *testing.T) {
		failed := model.QueueStatusFailed
		list, err := f.repo.List(ctx, model.QueueFilter{ScheduleID: &f.schedule.ID, Status: &failed})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := f.repo.Stats(ctx, model.QueueFilter{CampaignID: &f.schedule.CampaignID})
		require.NoError(t, err)
		assert.Equal(t, int64(5), stats.Total)
		assert.Equal(t, int64(3), stats.Pending)
		assert.Equal(t, int64(2), stats.Failed)
		assert.Zero(t, stats.Sent)
	})
}

func TestQueueRepository_Transitions(t *testing.T) {
	f := newQueueFixture(t, 3)
	ctx := ctxBg()
	later := testNow.Add(time.Minute)

	entry := seedQueue(t, f.db, f.schedule, f.clients[0], model.QueueStatusPending, 0)

	t.Run("mark sent", func(t *testing.T) {
		msgID := "msg-1"
		require.NoError(t, f.repo.MarkSent(ctx, entry.ID, &msgID, later))

		got, err := f.repo.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, model.QueueStatusSent, got.Status)
		require.NotNil(t, got.SentAt)
		assert.True(t, later.Equal(*got.SentAt))
		require.NotNil(t, got.MessageID)
		assert.Equal(t, "msg-1", *got.MessageID)
	})

	t.Run("double send is rejected", func(t *testing.T) {
		err := f.repo.MarkSent(ctx, entry.ID, nil, later)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("bounce after sent", func(t *testing.T) {
		require.NoError(t, f.repo.UpdateStatus(ctx, entry.ID, model.QueueStatusBounced, StatusFields{}, later))
		got, err := f.repo.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, model.QueueStatusBounced, got.Status)
	})

	t.Run("missing entry", func(t *testing.T) {
		assert.ErrorIs(t, f.repo.MarkSent(ctx, 999, nil, later), ErrNotFound)
		assert.ErrorIs(t, f.repo.MarkFailed(ctx, 999, "x", nil, later), ErrNotFound)
		assert.ErrorIs(t, f.repo.IncrementRetry(ctx, 999, later), ErrNotFound)
	})
}

func TestQueueRepository_RetryBound(t *testing.T) {
	f := newQueueFixture(t, 2)
	ctx := ctxBg()
	entry := seedQueue(t, f.db, f.schedule, f.clients[0], model.QueueStatusPending, 0)
	code := "550"

	for i := 0; i < model.DefaultMaxRetries; i++ {
		require.NoError(t, f.repo.MarkFailed(ctx, entry.ID, "mailbox unavailable", &code, testNow))
	}

	got, err := f.repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	require.NotNil(t, got.ErrorCode)
	assert.Equal(t, "550", *got.ErrorCode)

	assert.ErrorIs(t, f.repo.MarkFailed(ctx, entry.ID, "again", nil, testNow), ErrRetriesExhausted)
	assert.ErrorIs(t, f.repo.IncrementRetry(ctx, entry.ID, testNow), ErrRetriesExhausted)

	got, err = f.repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, got.MaxRetries, got.RetryCount)

	other := seedQueue(t, f.db, f.schedule, f.clients[1], model.QueueStatusPending, 0)
	require.NoError(t, f.repo.IncrementRetry(ctx, other.ID, testNow))
	got, err = f.repo.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, model.QueueStatusPending, got.Status)
}

func TestQueueRepository_Delete(t *testing.T) {
	f := newQueueFixture(t, 3)
	ctx := ctxBg()
	seedQueue(t, f.db, f.schedule, f.clients[0], model.QueueStatusPending, 0)
	seedQueue(t, f.db, f.schedule, f.clients[1], model.QueueStatusSent, 0)
	last := seedQueue(t, f.db, f.schedule, f.clients[2], model.QueueStatusQueued, 0)

	n, err := f.repo.DeleteBySchedule(ctx, f.schedule.ID, model.QueueStatusPending, model.QueueStatusQueued)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.ErrorIs(t, f.repo.Delete(ctx, last.ID), ErrNotFound)

	n, err = f.repo.DeleteBySchedule(ctx, f.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func entryIDs(entries []*model.QueueEntry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
