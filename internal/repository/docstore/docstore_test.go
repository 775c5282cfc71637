package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository/docstore"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/testutil"
)

func TestRoomRepository_CRUD(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)
	ctx := context.Background()

	room := domain.NewRoom("", domain.RoomModeAutoMatch, "")
	require.NoError(t, room.AddPlayer(domain.Player{ID: "h1", Username: "Ali"}))
	require.NoError(t, repos.Rooms.Create(ctx, room))
	require.NotEmpty(t, room.ID)

	got, err := repos.Rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, domain.RoomStateWaiting, got.State)
	require.NotNil(t, got.PlayerByID("h1"))
	assert.Equal(t, "Ali", got.PlayerByID("h1").Username)

	got.State = domain.RoomStatePlaying
	got.Answers["h1"] = "su"
	require.NoError(t, repos.Rooms.Save(ctx, got))

	reread, err := repos.Rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatePlaying, reread.State)
	assert.Equal(t, "su", reread.Answers["h1"])

	require.NoError(t, repos.Rooms.Delete(ctx, room.ID))
	_, err = repos.Rooms.GetByID(ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	// Deleting again is a no-op.
	require.NoError(t, repos.Rooms.Delete(ctx, room.ID))
}

func TestRoomRepository_CreateWithID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)
	ctx := context.Background()

	room := domain.NewRoom("AB12CD", domain.RoomModePrivate, "owner")
	require.NoError(t, repos.Rooms.CreateWithID(ctx, room))

	dup := domain.NewRoom("AB12CD", domain.RoomModePrivate, "other")
	assert.ErrorIs(t, repos.Rooms.CreateWithID(ctx, dup), domain.ErrRoomExists)
}

func TestRoomRepository_SaveMissingRoom(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)

	room := domain.NewRoom("missing", domain.RoomModeAutoMatch, "")
	err := repos.Rooms.Save(context.Background(), room)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomRepository_FindByFields(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)
	ctx := context.Background()

	waiting := domain.NewRoom("", domain.RoomModeAutoMatch, "")
	require.NoError(t, repos.Rooms.Create(ctx, waiting))

	playing := domain.NewRoom("", domain.RoomModeAutoMatch, "")
	playing.State = domain.RoomStatePlaying
	require.NoError(t, repos.Rooms.Create(ctx, playing))

	private := domain.NewRoom("CODE01", domain.RoomModePrivate, "owner")
	require.NoError(t, repos.Rooms.CreateWithID(ctx, private))

	found, err := repos.Rooms.FindByFields(ctx, map[string]string{
		"mode":  string(domain.RoomModeAutoMatch),
		"state": string(domain.RoomStateWaiting),
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, waiting.ID, found[0].ID)
}

func TestRoomRepository_Watch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)
	ctx := context.Background()

	room := domain.NewRoom("", domain.RoomModeAutoMatch, "")
	require.NoError(t, repos.Rooms.Create(ctx, room))

	ch, cancel := repos.Rooms.Watch(room.ID)
	defer cancel()

	// The subscription opens with a snapshot of the current document.
	ev := receiveEvent(t, ch)
	require.False(t, ev.Deleted)
	assert.Equal(t, room.ID, ev.Room.ID)

	room.State = domain.RoomStateStarting
	require.NoError(t, repos.Rooms.Save(ctx, room))
	ev = receiveEvent(t, ch)
	require.False(t, ev.Deleted)
	assert.Equal(t, domain.RoomStateStarting, ev.Room.State)

	require.NoError(t, repos.Rooms.Delete(ctx, room.ID))
	ev = receiveEvent(t, ch)
	assert.True(t, ev.Deleted)
}

func TestRoomRepository_WatchSurvivesTransientReadError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)
	ctx := context.Background()

	room := domain.NewRoom("", domain.RoomModeAutoMatch, "")
	require.NoError(t, repos.Rooms.Create(ctx, room))

	// Sever the connection so the initial snapshot read fails with
	// something other than not-found.
	sqlDB, err := testDB.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	ch, cancel := repos.Rooms.Watch(room.ID)
	defer cancel()

	// A failed read must not masquerade as a deletion tombstone.
	select {
	case ev := <-ch:
		assert.False(t, ev.Deleted, "transient read error delivered as tombstone")
	case <-time.After(200 * time.Millisecond):
	}
}

func receiveEvent(t *testing.T, ch <-chan repository.RoomEvent) repository.RoomEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "watch channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for room event")
		return repository.RoomEvent{}
	}
}

func TestQuestionRepository_Seed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testutil.NewTestDB(t)
	repos := docstore.NewRepositories(testDB.DB)
	ctx := context.Background()

	require.NoError(t, docstore.SeedQuestions(ctx, repos.Questions))

	count, err := repos.Questions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(docstore.DefaultQuestions())), count)

	// Seeding is idempotent.
	require.NoError(t, docstore.SeedQuestions(ctx, repos.Questions))
	again, err := repos.Questions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, again)

	pool, err := repos.Questions.GetByRoundKind(ctx, domain.RoundKindSharedGuess)
	require.NoError(t, err)
	require.NotEmpty(t, pool)
	for _, q := range pool {
		assert.Equal(t, domain.RoundKindSharedGuess, q.RoundKind)
		assert.NotEmpty(t, q.Text)
	}
}
