package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/config"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/oracle"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/similarity"
)

var botNames = []string{"Bot Ayşe", "Bot Mehmet", "Bot Zeynep", "Bot Emre"}

// roomController owns one active room's state machine end to end:
// matchmaking timeout, bot backfill, round start, answer collection,
// completion detection, scoring and cleanup. Its lifetime is tied to a
// single watch on the room document; leave tears both down together.
//
// Every decision re-fetches the freshest document before composing a
// write. The store offers no compare-and-swap, so racing writers remain
// possible; transitions tolerate that by re-checking state after each
// fetch and treating a lost race as "someone else did it".
type roomController struct {
	roomID    string
	user      domain.UserInfo
	rooms     repository.RoomRepository
	questions repository.QuestionRepository
	oracle    *oracle.Oracle
	cfg       config.Game
	log       zerolog.Logger
	emit      func(RoomUpdate)
	rng       *rand.Rand

	mu             sync.Mutex
	closed         bool
	cancelWatch    repository.CancelFunc
	searchTimer    *time.Timer
	searchTicker   *time.Ticker
	searchStop     chan struct{}
	searchDeadline time.Time
	startTimer     *time.Timer
	botTimer       *time.Timer
	dwellTimer     *time.Timer
	deadlineTimer  *time.Timer
	deleteTimer    *time.Timer
	lastRoom       *domain.Room

	// scoringInProgress makes the two scoring triggers (completion
	// detection and the hard deadline) mutually exclusive.
	scoringInProgress atomic.Bool
}

func newRoomController(
	roomID string,
	user domain.UserInfo,
	rooms repository.RoomRepository,
	questions repository.QuestionRepository,
	o *oracle.Oracle,
	cfg config.Game,
	log zerolog.Logger,
	emit func(RoomUpdate),
) *roomController {
	return &roomController{
		roomID:    roomID,
		user:      user,
		rooms:     rooms,
		questions: questions,
		oracle:    o,
		cfg:       cfg,
		log:       log.With().Str("component", "lifecycle").Str("room_id", roomID).Logger(),
		emit:      emit,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// start subscribes to the room document and begins folding snapshots.
func (c *roomController) start() {
	ch, cancel := c.rooms.Watch(c.roomID)
	c.mu.Lock()
	c.cancelWatch = cancel
	c.mu.Unlock()
	go c.watchLoop(ch)
}

func (c *roomController) watchLoop(ch <-chan repository.RoomEvent) {
	for ev := range ch {
		if ev.Deleted {
			c.log.Debug().Msg("room deleted, tearing down controller")
			c.teardown()
			c.emit(RoomUpdate{Deleted: true})
			return
		}
		c.onSnapshot(ev.Room)
	}
	// Channel closed without a tombstone: either we cancelled the
	// watch ourselves, or the store dropped it with the room gone.
	if !c.isClosed() {
		c.teardown()
		c.emit(RoomUpdate{Deleted: true})
	}
}

// onSnapshot folds one inbound document into local state and drives
// whatever transition it calls for. Snapshots are discrete messages;
// nothing here holds shared mutable room memory across calls.
func (c *roomController) onSnapshot(room *domain.Room) {
	c.mu.Lock()
	c.lastRoom = room
	searching := c.searchTimer != nil && room.State == domain.RoomStateWaiting && !room.IsFull()
	deadline := c.searchDeadline
	c.mu.Unlock()

	update := RoomUpdate{Room: room}
	if searching {
		update.Searching = true
		update.SearchSecondsLeft = secondsUntil(deadline)
	}
	c.emit(update)

	switch room.State {
	case domain.RoomStateWaiting:
		if room.IsFull() {
			c.stopSearch()
			c.tryBeginStarting("room full")
		}
	case domain.RoomStateStarting, domain.RoomStatePlaying, domain.RoomStateScoring, domain.RoomStateFinished:
		c.stopSearch()
	}

	if room.State == domain.RoomStatePlaying && room.StartedAt != nil && room.AllHumansAnswered() {
		elapsed := time.Since(*room.StartedAt)
		if elapsed >= c.cfg.MinRoundTime {
			c.triggerScoring("all humans answered")
		} else {
			// Everyone answered before the minimum dwell; no further
			// snapshot will arrive, so the remainder runs on a timer.
			c.armDwellTimer(c.cfg.MinRoundTime - elapsed)
		}
	}

	if room.State == domain.RoomStateFinished && room.Mode == domain.RoomModePrivate {
		c.scheduleFinishedCleanup()
	}
}

// beginSearch arms the matchmaking timeout and the one-second countdown
// the UI shows while seats are empty.
func (c *roomController) beginSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.searchTimer != nil {
		return
	}
	c.searchDeadline = time.Now().Add(c.cfg.SearchTimeout)
	c.searchTimer = time.AfterFunc(c.cfg.SearchTimeout, c.backfillBots)
	c.searchTicker = time.NewTicker(time.Second)
	c.searchStop = make(chan struct{})
	go c.runSearchTicker(c.searchTicker, c.searchStop)
}

func (c *roomController) runSearchTicker(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			room := c.lastRoom
			deadline := c.searchDeadline
			c.mu.Unlock()
			c.emit(RoomUpdate{
				Room:              room,
				Searching:         true,
				SearchSecondsLeft: secondsUntil(deadline),
			})
		}
	}
}

func (c *roomController) stopSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	if c.searchTicker != nil {
		c.searchTicker.Stop()
		c.searchTicker = nil
	}
	if c.searchStop != nil {
		close(c.searchStop)
		c.searchStop = nil
	}
}

// backfillBots fills the remaining seats with synthetic players when
// the matchmaking search times out, then starts the game.
func (c *roomController) backfillBots() {
	if c.isClosed() {
		return
	}
	ctx := context.Background()
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil {
		// Room may be gone by the time a stale timer fires.
		c.log.Debug().Err(err).Msg("backfill skipped, room unavailable")
		return
	}
	if room.State != domain.RoomStateWaiting {
		return
	}
	c.stopSearch()

	first := true
	for !room.IsFull() {
		bot := domain.Player{
			ID:       "bot-" + uuid.New().String(),
			Username: botNames[len(room.Players)%len(botNames)],
			IsBot:    true,
		}
		// The first backfill bot is forced onto a team that still has
		// nobody, so two bots never pair up against a lone human.
		if first {
			first = false
			if teamID := emptyTeamID(room); teamID != "" {
				if err := room.AddPlayerToTeam(bot, teamID); err != nil {
					c.log.Error().Err(err).Msg("forced bot placement failed")
					return
				}
				continue
			}
		}
		if err := room.AddPlayer(bot); err != nil {
			c.log.Error().Err(err).Msg("bot backfill failed")
			return
		}
	}

	if err := c.rooms.Save(ctx, room); err != nil {
		c.log.Error().Err(err).Msg("failed to save backfilled room")
		return
	}
	c.log.Info().Int("players", len(room.Players)).Msg("backfilled room with bots")
	c.tryBeginStarting("search timeout")
}

func emptyTeamID(room *domain.Room) string {
	for _, t := range room.Teams {
		if len(t.PlayerIDs) == 0 {
			return t.ID
		}
	}
	return ""
}

// tryBeginStarting moves waiting → starting. Losing the race to another
// controller is fine: the re-fetched state check makes this a no-op.
func (c *roomController) tryBeginStarting(reason string) {
	if c.isClosed() {
		return
	}
	ctx := context.Background()
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil || room.State != domain.RoomStateWaiting {
		return
	}
	room.State = domain.RoomStateStarting
	if err := c.rooms.Save(ctx, room); err != nil {
		c.log.Error().Err(err).Msg("failed to enter starting state")
		return
	}
	c.log.Info().Str("reason", reason).Msg("room starting")

	c.mu.Lock()
	if !c.closed {
		c.startTimer = time.AfterFunc(c.cfg.StartDelay, c.beginPlaying)
	}
	c.mu.Unlock()
}

// beginPlaying picks a question, resets the answer books and arms the
// two round timers: the bot answer delay and the hard scoring deadline.
func (c *roomController) beginPlaying() {
	if c.isClosed() {
		return
	}
	ctx := context.Background()
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil || room.State != domain.RoomStateStarting {
		return
	}

	pool, err := c.questions.GetByRoundKind(ctx, domain.RoundKindSharedGuess)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to load question pool")
		return
	}
	if len(pool) == 0 {
		c.log.Error().Err(domain.ErrNoQuestions).Msg("cannot start round")
		return
	}

	now := time.Now()
	room.CurrentQuestion = pool[c.rng.Intn(len(pool))]
	room.Answers = map[string]string{}
	room.HasAnswered = map[string]bool{}
	room.State = domain.RoomStatePlaying
	room.StartedAt = &now
	if err := c.rooms.Save(ctx, room); err != nil {
		c.log.Error().Err(err).Msg("failed to enter playing state")
		return
	}
	c.log.Info().Str("question_id", room.CurrentQuestion.ID).Msg("round started")

	botDelay := c.cfg.BotAnswerMinDelay +
		time.Duration(c.rng.Int63n(int64(c.cfg.BotAnswerMaxDelay-c.cfg.BotAnswerMinDelay)+1))

	c.mu.Lock()
	if !c.closed {
		c.botTimer = time.AfterFunc(botDelay, c.writeBotAnswers)
		c.deadlineTimer = time.AfterFunc(c.cfg.AnswerDeadline, func() {
			c.triggerScoring("deadline")
		})
	}
	c.mu.Unlock()
}

// writeBotAnswers generates and records the synthetic players' answers.
// Any failure falls through to the emergency path so a round can never
// stall waiting on bots.
func (c *roomController) writeBotAnswers() {
	if c.isClosed() {
		return
	}
	if err := c.generateBotAnswers(); err != nil {
		c.log.Error().Err(err).Msg("bot answer generation failed, using emergency answers")
		c.emergencyBotAnswers()
	}
}

func (c *roomController) generateBotAnswers() error {
	ctx := context.Background()
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil {
		return fmt.Errorf("fetch room: %w", err)
	}
	if room.State != domain.RoomStatePlaying || room.CurrentQuestion == nil {
		return nil
	}
	question := room.CurrentQuestion

	for _, team := range room.Teams {
		var bots []string
		for _, pid := range team.PlayerIDs {
			if p := room.PlayerByID(pid); p != nil && p.IsBot {
				bots = append(bots, pid)
			}
		}
		switch len(bots) {
		case 0:
		case 1:
			answer := c.oracle.Answer(ctx, question.Text, question.Category)
			room.Answers[bots[0]] = answer
			room.HasAnswered[bots[0]] = true
		default:
			// Two bots on one team answer as a correlated pair so the
			// team scores non-trivially.
			a1, a2 := c.oracle.PairedAnswers(ctx, question.Text, question.Category)
			room.Answers[bots[0]] = a1
			room.HasAnswered[bots[0]] = true
			room.Answers[bots[1]] = a2
			room.HasAnswered[bots[1]] = true
		}
	}

	if err := c.rooms.Save(ctx, room); err != nil {
		return fmt.Errorf("save bot answers: %w", err)
	}
	c.log.Debug().Msg("bot answers written")
	return nil
}

// emergencyBotAnswers writes a short fixed list of plausible words
// directly, bypassing the oracle chain entirely.
func (c *roomController) emergencyBotAnswers() {
	ctx := context.Background()
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil || room.State != domain.RoomStatePlaying {
		return
	}
	i := 0
	for _, p := range room.Players {
		if !p.IsBot || room.HasAnswered[p.ID] {
			continue
		}
		room.Answers[p.ID] = oracle.EmergencyAnswers[i%len(oracle.EmergencyAnswers)]
		room.HasAnswered[p.ID] = true
		i++
	}
	if err := c.rooms.Save(ctx, room); err != nil {
		c.log.Error().Err(err).Msg("emergency bot answers failed")
	}
}

// armDwellTimer schedules completion-triggered scoring for when the
// minimum round time runs out.
func (c *roomController) armDwellTimer(remaining time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.dwellTimer != nil {
		return
	}
	c.dwellTimer = time.AfterFunc(remaining, func() {
		c.triggerScoring("dwell elapsed")
	})
}

// triggerScoring runs the scoring routine exactly once per round even
// when completion detection and the deadline fire together. The
// in-progress flag always clears, so a failure never wedges the guard
// itself; the room, however, stays in scoring if the computation fails.
func (c *roomController) triggerScoring(reason string) {
	if !c.scoringInProgress.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		c.scoringInProgress.Store(false)
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("score computation panicked")
		}
	}()

	ctx := context.Background()
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil || room.State != domain.RoomStatePlaying {
		return
	}

	room.State = domain.RoomStateScoring
	if err := c.rooms.Save(ctx, room); err != nil {
		c.log.Error().Err(err).Msg("failed to enter scoring state")
		return
	}
	c.log.Info().Str("reason", reason).Msg("scoring round")

	if err := c.finishRound(ctx, room); err != nil {
		c.log.Error().
			Err(err).
			Interface("answers", room.Answers).
			Msg("score computation failed, room left in scoring state")
	}
}

// finishRound computes per-team scores from paired answers and records
// the round result. Teams with fewer than two seated players score 0.
func (c *roomController) finishRound(ctx context.Context, room *domain.Room) error {
	questionText := ""
	if room.CurrentQuestion != nil {
		questionText = room.CurrentQuestion.Text
	}

	teamScores := make(map[string]domain.TeamRoundResult, len(room.Teams))
	for _, team := range room.Teams {
		result := domain.TeamRoundResult{
			Answers:     map[string]string{},
			PlayerNames: map[string]string{},
		}
		for _, pid := range team.PlayerIDs {
			result.Answers[pid] = room.Answers[pid]
			if p := room.PlayerByID(pid); p != nil {
				result.PlayerNames[pid] = p.Username
			}
		}
		if len(team.PlayerIDs) >= 2 {
			sim := similarity.Score(room.Answers[team.PlayerIDs[0]], room.Answers[team.PlayerIDs[1]])
			result.Similarity = sim
			result.Score = int(sim*100 + 0.5)
		}
		teamScores[team.ID] = result
		room.Scores[team.ID] += result.Score
	}

	room.RoundResults = append(room.RoundResults, domain.RoundResult{
		RoundNumber: room.RoundNumber,
		Question:    questionText,
		TeamScores:  teamScores,
	})
	room.State = domain.RoomStateFinished
	if err := c.rooms.Save(ctx, room); err != nil {
		return fmt.Errorf("save round result: %w", err)
	}
	c.log.Info().Interface("scores", room.Scores).Msg("round finished")
	return nil
}

// scheduleFinishedCleanup arms the delayed deletion of a finished
// private room. Deletion is idempotent, so racing controllers are fine.
func (c *roomController) scheduleFinishedCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.deleteTimer != nil {
		return
	}
	c.deleteTimer = time.AfterFunc(c.cfg.FinishedRoomTTL, func() {
		if err := c.rooms.Delete(context.Background(), c.roomID); err != nil {
			c.log.Error().Err(err).Msg("failed to delete finished room")
		}
	})
}

// submitAnswer records the local player's answer for the current round.
func (c *roomController) submitAnswer(ctx context.Context, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return domain.ErrEmptyAnswer
	}
	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil {
		return err
	}
	if room.State != domain.RoomStatePlaying {
		return domain.ErrNotPlaying
	}
	if room.PlayerByID(c.user.ID) == nil {
		return domain.ErrNotInRoom
	}
	if room.HasAnswered[c.user.ID] {
		return domain.ErrAlreadyAnswered
	}
	room.Answers[c.user.ID] = answer
	room.HasAnswered[c.user.ID] = true
	return c.rooms.Save(ctx, room)
}

// leave removes the local player and tears the controller down. The
// room is deleted outright when no human remains; otherwise it is
// updated in place and the state machine is untouched.
func (c *roomController) leave(ctx context.Context) error {
	c.teardown()

	room, err := c.rooms.GetByID(ctx, c.roomID)
	if err != nil {
		return nil
	}
	room.RemovePlayer(c.user.ID)
	if len(room.Humans()) == 0 {
		return c.rooms.Delete(ctx, c.roomID)
	}
	return c.rooms.Save(ctx, room)
}

// teardown cancels every pending timer and the document watch. All
// exit paths funnel through here so nothing fires against a room the
// session no longer tracks.
func (c *roomController) teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, t := range []*time.Timer{c.searchTimer, c.startTimer, c.botTimer, c.dwellTimer, c.deadlineTimer, c.deleteTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.searchTimer, c.startTimer, c.botTimer, c.dwellTimer, c.deadlineTimer, c.deleteTimer = nil, nil, nil, nil, nil, nil
	if c.searchTicker != nil {
		c.searchTicker.Stop()
		c.searchTicker = nil
	}
	if c.searchStop != nil {
		close(c.searchStop)
		c.searchStop = nil
	}
	cancel := c.cancelWatch
	c.cancelWatch = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *roomController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func secondsUntil(deadline time.Time) int {
	remaining := int(time.Until(deadline).Round(time.Second).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
