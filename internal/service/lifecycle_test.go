package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/config"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/oracle"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository/memory"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func testGameConfig() config.Game {
	return config.Game{
		SearchTimeout:     40 * time.Millisecond,
		StartDelay:        10 * time.Millisecond,
		BotAnswerMinDelay: 5 * time.Millisecond,
		BotAnswerMaxDelay: 10 * time.Millisecond,
		AnswerDeadline:    150 * time.Millisecond,
		MinRoundTime:      20 * time.Millisecond,
		FinishedRoomTTL:   50 * time.Millisecond,
	}
}

func testQuestion() *domain.Question {
	return &domain.Question{
		ID:        "q-renk",
		Text:      "Gökyüzü denince akla gelen renk nedir?",
		RoundKind: domain.RoundKindSharedGuess,
		Category:  "renk",
	}
}

func newTestService(rooms *memory.RoomStore) *GameService {
	return newTestServiceWithConfig(rooms, testGameConfig())
}

func newTestServiceWithConfig(rooms *memory.RoomStore, cfg config.Game) *GameService {
	repos := &repository.Repositories{
		Rooms:     rooms,
		Questions: memory.NewQuestionStore(testQuestion()),
	}
	answers := oracle.New(nil, rand.New(rand.NewSource(7)), zerolog.Nop())
	return NewGameService(repos, answers, cfg, zerolog.Nop())
}

func seedRoom(t *testing.T, rooms *memory.RoomStore, mode domain.RoomMode, players ...domain.Player) *domain.Room {
	t.Helper()
	room := domain.NewRoom("", mode, "")
	for _, p := range players {
		require.NoError(t, room.AddPlayer(p))
	}
	require.NoError(t, rooms.Create(context.Background(), room))
	return room
}

func fetchRoom(t *testing.T, rooms *memory.RoomStore, id string) *domain.Room {
	t.Helper()
	room, err := rooms.GetByID(context.Background(), id)
	require.NoError(t, err)
	return room
}

func waitForState(t *testing.T, rooms *memory.RoomStore, id string, state domain.RoomState) *domain.Room {
	t.Helper()
	var room *domain.Room
	require.Eventually(t, func() bool {
		r, err := rooms.GetByID(context.Background(), id)
		if err != nil {
			return false
		}
		room = r
		return r.State == state
	}, waitFor, tick, "room never reached state %s", state)
	return room
}

func TestController_BackfillBots(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch, domain.Player{ID: "h1", Username: "Ali"})

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1", Username: "Ali"}, func(RoomUpdate) {})
	defer ctrl.teardown()

	ctrl.backfillBots()

	got := fetchRoom(t, rooms, room.ID)
	require.True(t, got.IsFull())
	assert.Len(t, got.Humans(), 1)

	// The first bot lands on the empty team so the lone human gets a
	// teammate instead of facing a full bot pair alone.
	humanTeam := got.TeamByID(got.PlayerByID("h1").TeamID)
	otherTeam := got.TeamByID("team-2")
	require.Len(t, humanTeam.PlayerIDs, 2)
	require.Len(t, otherTeam.PlayerIDs, 2)
	for _, pid := range otherTeam.PlayerIDs {
		assert.True(t, got.PlayerByID(pid).IsBot, "team without humans must be all bots")
	}

	// Backfill rolls straight into the start sequence.
	waitForState(t, rooms, room.ID, domain.RoomStatePlaying)
}

func TestController_BackfillSkipsNonWaitingRoom(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch, domain.Player{ID: "h1"})
	room.State = domain.RoomStatePlaying
	require.NoError(t, rooms.Save(context.Background(), room))

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(RoomUpdate) {})
	defer ctrl.teardown()
	ctrl.backfillBots()

	got := fetchRoom(t, rooms, room.ID)
	assert.Len(t, got.Players, 1)
}

func TestController_RoundFlow(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1", Username: "Ali"},
		domain.Player{ID: "h2", Username: "Ayşe"},
		domain.Player{ID: "h3", Username: "Can"},
		domain.Player{ID: "h4", Username: "Elif"},
	)

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1", Username: "Ali"}, func(RoomUpdate) {})
	defer ctrl.teardown()
	ctrl.start()

	ctrl.tryBeginStarting("room full")

	playing := waitForState(t, rooms, room.ID, domain.RoomStatePlaying)
	require.NotNil(t, playing.CurrentQuestion)
	require.NotNil(t, playing.StartedAt)

	// Let the minimum round dwell pass before the last answer lands, so
	// completion detection rather than the deadline finishes the round.
	time.Sleep(30 * time.Millisecond)

	// team-1 is h1+h3, team-2 is h2+h4.
	playing = fetchRoom(t, rooms, room.ID)
	playing.Answers = map[string]string{"h1": "su", "h3": "su", "h2": "su", "h4": "ayran"}
	playing.HasAnswered = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true}
	require.NoError(t, rooms.Save(context.Background(), playing))

	finished := waitForState(t, rooms, room.ID, domain.RoomStateFinished)
	require.Len(t, finished.RoundResults, 1)

	result := finished.RoundResults[0]
	assert.Equal(t, 100, result.TeamScores["team-1"].Score)
	assert.Equal(t, 80, result.TeamScores["team-2"].Score)
	assert.Equal(t, 100, finished.Scores["team-1"])
	assert.Equal(t, 80, finished.Scores["team-2"])
}

func TestController_EarlyAnswersScoreOnceDwellElapses(t *testing.T) {
	rooms := memory.NewRoomStore()

	// A deadline far beyond the test horizon: reaching finished proves
	// the dwell timer fired, not the deadline.
	cfg := testGameConfig()
	cfg.MinRoundTime = 100 * time.Millisecond
	cfg.AnswerDeadline = time.Minute
	svc := newTestServiceWithConfig(rooms, cfg)

	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1", Username: "Ali"},
		domain.Player{ID: "h2", Username: "Ayşe"},
		domain.Player{ID: "h3", Username: "Can"},
		domain.Player{ID: "h4", Username: "Elif"},
	)
	now := time.Now()
	room.State = domain.RoomStatePlaying
	room.CurrentQuestion = testQuestion()
	room.StartedAt = &now
	// Everyone answers right at round start, well inside the dwell.
	room.Answers = map[string]string{"h1": "su", "h3": "su", "h2": "su", "h4": "ayran"}
	room.HasAnswered = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true}
	require.NoError(t, rooms.Save(context.Background(), room))

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1", Username: "Ali"}, func(RoomUpdate) {})
	defer ctrl.teardown()
	ctrl.start()

	finished := waitForState(t, rooms, room.ID, domain.RoomStateFinished)
	require.Len(t, finished.RoundResults, 1)
	assert.Equal(t, 100, finished.Scores["team-1"])
	assert.Equal(t, 80, finished.Scores["team-2"])
}

func TestController_DeadlineScoresShortTeams(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1", Username: "Ali"},
	)
	now := time.Now()
	room.State = domain.RoomStatePlaying
	room.CurrentQuestion = testQuestion()
	room.StartedAt = &now
	require.NoError(t, rooms.Save(context.Background(), room))

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(RoomUpdate) {})
	defer ctrl.teardown()

	ctrl.triggerScoring("deadline")

	finished := fetchRoom(t, rooms, room.ID)
	require.Equal(t, domain.RoomStateFinished, finished.State)
	require.Len(t, finished.RoundResults, 1)

	// A team with fewer than two seated players scores zero.
	assert.Equal(t, 0, finished.RoundResults[0].TeamScores["team-1"].Score)
	assert.Equal(t, 0, finished.Scores["team-1"])
	assert.Equal(t, 0, finished.Scores["team-2"])
}

func TestController_ScoringRunsOnce(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1"}, domain.Player{ID: "h2"},
		domain.Player{ID: "h3"}, domain.Player{ID: "h4"},
	)
	now := time.Now()
	room.State = domain.RoomStatePlaying
	room.CurrentQuestion = testQuestion()
	room.StartedAt = &now
	room.Answers = map[string]string{"h1": "su", "h2": "su", "h3": "su", "h4": "su"}
	room.HasAnswered = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true}
	require.NoError(t, rooms.Save(context.Background(), room))

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(RoomUpdate) {})
	defer ctrl.teardown()

	// Completion detection and the deadline racing each other must not
	// double-score the round.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.triggerScoring("race")
		}()
	}
	wg.Wait()
	ctrl.triggerScoring("late deadline")

	finished := fetchRoom(t, rooms, room.ID)
	assert.Equal(t, domain.RoomStateFinished, finished.State)
	assert.Len(t, finished.RoundResults, 1)
	assert.Equal(t, 100, finished.Scores["team-1"])
}

func TestController_ScoringFailureLeavesRoomInScoring(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1"}, domain.Player{ID: "h2"},
	)
	now := time.Now()
	room.State = domain.RoomStatePlaying
	room.CurrentQuestion = testQuestion()
	room.StartedAt = &now
	room.Answers = map[string]string{"h1": "su", "h2": "su"}
	room.HasAnswered = map[string]bool{"h1": true, "h2": true}
	require.NoError(t, rooms.Save(context.Background(), room))

	// Fail only the write that would record the result.
	rooms.SaveHook = func(r *domain.Room) error {
		if r.State == domain.RoomStateFinished {
			return fmt.Errorf("store unavailable")
		}
		return nil
	}

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(RoomUpdate) {})
	defer ctrl.teardown()
	ctrl.triggerScoring("deadline")

	// The room stays in scoring, but the in-progress guard is released.
	got := fetchRoom(t, rooms, room.ID)
	assert.Equal(t, domain.RoomStateScoring, got.State)
	assert.Empty(t, got.RoundResults)
	assert.False(t, ctrl.scoringInProgress.Load())
}

func TestController_SubmitAnswer(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1"}, domain.Player{ID: "h2"},
	)

	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(RoomUpdate) {})
	defer ctrl.teardown()
	ctx := context.Background()

	assert.ErrorIs(t, ctrl.submitAnswer(ctx, "  "), domain.ErrEmptyAnswer)
	assert.ErrorIs(t, ctrl.submitAnswer(ctx, "su"), domain.ErrNotPlaying)

	room = fetchRoom(t, rooms, room.ID)
	room.State = domain.RoomStatePlaying
	require.NoError(t, rooms.Save(ctx, room))

	require.NoError(t, ctrl.submitAnswer(ctx, "  su "))
	got := fetchRoom(t, rooms, room.ID)
	assert.Equal(t, "su", got.Answers["h1"])
	assert.True(t, got.HasAnswered["h1"])

	assert.ErrorIs(t, ctrl.submitAnswer(ctx, "ayran"), domain.ErrAlreadyAnswered)

	stranger := svc.newController(room.ID, domain.UserInfo{ID: "ghost"}, func(RoomUpdate) {})
	defer stranger.teardown()
	assert.ErrorIs(t, stranger.submitAnswer(ctx, "su"), domain.ErrNotInRoom)
}

func TestController_LeaveDeletesEmptyRoom(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch,
		domain.Player{ID: "h1"}, domain.Player{ID: "h2"},
	)
	ctx := context.Background()

	first := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(RoomUpdate) {})
	require.NoError(t, first.leave(ctx))

	got := fetchRoom(t, rooms, room.ID)
	assert.Nil(t, got.PlayerByID("h1"))
	assert.Len(t, got.Humans(), 1)

	second := svc.newController(room.ID, domain.UserInfo{ID: "h2"}, func(RoomUpdate) {})
	require.NoError(t, second.leave(ctx))

	_, err := rooms.GetByID(ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestController_WatchEmitsTombstoneOnDelete(t *testing.T) {
	rooms := memory.NewRoomStore()
	svc := newTestService(rooms)
	room := seedRoom(t, rooms, domain.RoomModeAutoMatch, domain.Player{ID: "h1"})

	updates := make(chan RoomUpdate, 16)
	ctrl := svc.newController(room.ID, domain.UserInfo{ID: "h1"}, func(u RoomUpdate) {
		updates <- u
	})
	defer ctrl.teardown()
	ctrl.start()

	require.NoError(t, rooms.Delete(context.Background(), room.ID))

	require.Eventually(t, func() bool {
		for {
			select {
			case u := <-updates:
				if u.Deleted {
					return true
				}
			default:
				return false
			}
		}
	}, waitFor, tick, "no tombstone update received")
}
