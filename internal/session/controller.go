package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
	"github.com/hammamikhairi/kidzstage/internal/playback"
)

// ── Collaborators ────────────────────────────────────────────────

// Performer plays scripted scenes. *playback.Sequencer satisfies it.
type Performer interface {
	Play(ctx context.Context, scenes []domain.Scene, opts playback.RunOptions) (playback.Report, error)
	Halt()
	LastScenes() []domain.Scene
}

// Voice is the speech engine. *speech.Engine satisfies it.
type Voice interface {
	Speak(ctx context.Context, u domain.Utterance) domain.SpeechOutcome
	Cancel()
	IsActive() bool
}

// Stage is the preset video overlay. *preset.Overlay satisfies it.
type Stage interface {
	Show(p domain.Preset)
	Halt()
	Clear()
	Active() bool
}

// TopicFetcher resolves the explainer for an answer. *explainer.Poller
// satisfies it.
type TopicFetcher interface {
	Fetch(ctx context.Context, jobID string, inline *domain.Explainer, lang string) *domain.Topic
}

// Recorder captures one spoken question. Stop returns the transcript;
// Cancel closes the microphone and drops it.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (string, error)
	Cancel()
}

// ── Options ──────────────────────────────────────────────────────

// Option configures the Controller.
type Option func(*Controller)

// WithOverlay sets the preset video overlay.
func WithOverlay(s Stage) Option {
	return func(c *Controller) { c.overlay = s }
}

// WithPresets enables matching questions to preset videos. It needs an
// overlay to show them.
func WithPresets(p domain.PresetCatalog) Option {
	return func(c *Controller) { c.presets = p }
}

// WithTopics sets the explainer fetcher.
func WithTopics(t TopicFetcher) Option {
	return func(c *Controller) { c.topics = t }
}

// WithRecorder enables voice questions.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLanguage sets the initial question language.
func WithLanguage(tag string) Option {
	return func(c *Controller) { c.language = tag }
}

// WithCharacter sets the initial character.
func WithCharacter(ch domain.Character) Option {
	return func(c *Controller) { c.character = ch }
}

// WithClassLevel sets the class level sent with every question.
func WithClassLevel(level string) Option {
	return func(c *Controller) { c.classLevel = level }
}

// ── Controller ───────────────────────────────────────────────────

// Snapshot is the controller state the view renders.
type Snapshot struct {
	State      domain.SessionState
	TurnID     string
	Processing bool
	Replaying  bool
	Stopped    bool
	Language   string
	Character  domain.Character
}

// Controller owns the session state and arbitrates between new
// questions, the running performance, replay and stop.
//
// A turn is one question and everything it launched. Starting a turn
// cancels the previous one; results from a cancelled turn are dropped.
// Each start of playback (a turn or a replay) gets a play id, and only
// the newest play may move the state back to Idle.
type Controller struct {
	answers  domain.AnswerService
	player   Performer
	speech   Voice
	chat     domain.ChatLog
	notifier domain.Notifier
	log      *logger.Logger

	overlay    Stage
	presets    domain.PresetCatalog
	topics     TopicFetcher
	recorder   Recorder
	classLevel string

	stop      atomic.Bool
	replaying atomic.Bool
	wg        sync.WaitGroup

	mu           sync.Mutex
	state        domain.SessionState
	turnID       string
	turnCancel   context.CancelFunc
	replayCancel context.CancelFunc
	playID       uint64
	processing   bool
	language     string
	character    domain.Character
	lastLanguage string
	onChange     func(Snapshot)
	onTopic      func(*domain.Topic)
	onAnswer     func(*domain.Answer)
}

// New creates a session controller.
func New(answers domain.AnswerService, player Performer, speech Voice, chat domain.ChatLog, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		answers:    answers,
		player:     player,
		speech:     speech,
		chat:       chat,
		notifier:   notifier,
		log:        log,
		language:   "en",
		character:  domain.CharacterGirl,
		classLevel: "3",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers a callback for every state change. It is called
// outside the controller's lock, possibly from a background goroutine.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// OnTopic registers a callback for explainer results. Only results of
// the current turn are delivered.
func (c *Controller) OnTopic(fn func(*domain.Topic)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTopic = fn
}

// OnAnswer registers a callback run when a turn's answer arrives.
func (c *Controller) OnAnswer(fn func(*domain.Answer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAnswer = fn
}

// ── Turns ────────────────────────────────────────────────────────

// Listen starts voice capture. Any running turn is abandoned first.
func (c *Controller) Listen(ctx context.Context) error {
	if c.recorder == nil {
		c.notify(ctx, LineMicUnavailable())
		return fmt.Errorf("session: no recorder: %w", domain.ErrDeviceUnavailable)
	}
	c.quiesce()
	if err := c.fire(EventListen); err != nil {
		return err
	}

	if err := c.recorder.Start(ctx); err != nil {
		c.log.Warn("session: capture start failed: %v", err)
		c.notifyUrgent(ctx, LineMicUnavailable())
		c.fire(EventFail)
		return fmt.Errorf("session: start capture: %w", err)
	}
	c.notify(ctx, LineListening())
	return nil
}

// Done stops voice capture and sends the transcript as a question.
func (c *Controller) Done(ctx context.Context) error {
	if c.State() != domain.StateListening {
		return fmt.Errorf("%w: not listening", domain.ErrInvalidTransition)
	}

	text, err := c.recorder.Stop(ctx)
	if err != nil {
		c.log.Warn("session: capture stop failed: %v", err)
		c.notifyUrgent(ctx, LineMicUnavailable())
		c.fire(EventFail)
		return fmt.Errorf("session: stop capture: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.notify(ctx, LineDidNotHear())
		c.fire(EventFail)
		return nil
	}
	return c.submit(ctx, text)
}

// Ask sends a typed question. Any running turn is abandoned first. Ask
// returns once the request is on its way; use Wait to block until the
// turn has finished.
func (c *Controller) Ask(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.quiesce()
	return c.submit(ctx, text)
}

// submit starts a turn for the question.
func (c *Controller) submit(ctx context.Context, text string) error {
	turnCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if err := c.moveLocked(EventSubmit); err != nil {
		c.mu.Unlock()
		cancel()
		return err
	}
	c.stop.Store(false)
	if c.turnCancel != nil {
		c.turnCancel()
	}
	c.turnCancel = cancel
	turnID := uuid.NewString()
	c.turnID = turnID
	c.processing = true
	q := domain.Question{
		Text:       text,
		Language:   c.language,
		Character:  c.character,
		ClassLevel: c.classLevel,
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	c.log.Info("session: turn %s: %q (lang=%s character=%s)", turnID[:8], text, q.Language, q.Character)
	if c.chat != nil {
		if err := c.chat.Append(ctx, domain.ChatEntry{Speaker: domain.SpeakerChild, Text: text, At: time.Now()}); err != nil {
			c.log.Warn("session: chat append failed: %v", err)
		}
	}
	c.matchPreset(ctx, text)
	c.notify(ctx, LineThinking())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runTurn(turnCtx, turnID, q)
	}()
	return nil
}

// matchPreset puts a matching preset video on stage.
func (c *Controller) matchPreset(ctx context.Context, text string) {
	if c.presets == nil || c.overlay == nil {
		return
	}
	p, err := c.presets.Match(ctx, text)
	if err != nil {
		return
	}
	c.overlay.Show(*p)
	c.notify(ctx, LinePreset(p.Title))
}

// runTurn waits for the answer, then plays it while the explainer is
// fetched on its own goroutine.
func (c *Controller) runTurn(ctx context.Context, turnID string, q domain.Question) {
	ans, err := c.answers.Ask(ctx, q)

	c.mu.Lock()
	if c.turnID != turnID {
		c.mu.Unlock()
		c.log.Debug("session: turn %s superseded, dropping answer", turnID[:8])
		return
	}
	c.processing = false

	if err != nil {
		c.moveLocked(EventFail)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(snap)
		if ctx.Err() == nil {
			c.log.Error("session: answer failed: %v", err)
			c.notifyUrgent(ctx, LineAnswerError(err))
		}
		return
	}

	lang := ans.Language
	if lang == "" {
		lang = q.Language
	}
	c.lastLanguage = lang

	event := EventAnswer
	if len(ans.Scenes) == 0 {
		event = EventEmpty
	}
	c.moveLocked(event)
	c.playID++
	playID := c.playID
	onAnswer := c.onAnswer
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	if onAnswer != nil {
		onAnswer(ans)
	}
	if !c.current(ctx, turnID, playID) {
		c.log.Debug("session: turn %s stopped before playback", turnID[:8])
		return
	}
	c.fetchTopic(ctx, turnID, ans, lang)

	if len(ans.Scenes) == 0 {
		c.log.Info("session: turn %s has no scenes", turnID[:8])
		if ans.Explainer == nil && ans.JobID == "" {
			c.notify(ctx, LineNoPerformance())
		}
		return
	}

	opts := playback.RunOptions{
		Language:   lang,
		Suppressed: c.overlay != nil && c.overlay.Active(),
		EmitChat:   true,
	}
	if !c.current(ctx, turnID, playID) {
		c.log.Debug("session: turn %s stopped before playback", turnID[:8])
		return
	}
	if _, err := c.player.Play(ctx, ans.Scenes, opts); err != nil && !errors.Is(err, domain.ErrNoScenes) {
		c.log.Warn("session: playback: %v", err)
	}
	c.finish(playID)
}

// current reports whether the turn still owns the session.
func (c *Controller) current(ctx context.Context, turnID string, playID uint64) bool {
	if ctx.Err() != nil || c.stop.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnID == turnID && c.playID == playID
}

// fetchTopic runs the explainer fetch alongside playback.
func (c *Controller) fetchTopic(ctx context.Context, turnID string, ans *domain.Answer, lang string) {
	if c.topics == nil || (ans.JobID == "" && ans.Explainer == nil) {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		topic := c.topics.Fetch(ctx, ans.JobID, ans.Explainer, lang)
		if topic == nil {
			return
		}

		c.mu.Lock()
		current := c.turnID == turnID
		onTopic := c.onTopic
		c.mu.Unlock()

		if !current {
			c.log.Debug("session: turn %s superseded, dropping topic", turnID[:8])
			return
		}
		if onTopic != nil {
			onTopic(topic)
		}
	}()
}

// finish moves Playing to Idle if playID is still the newest play.
func (c *Controller) finish(playID uint64) {
	c.mu.Lock()
	if c.playID != playID {
		c.mu.Unlock()
		return
	}
	c.replaying.Store(false)
	if c.state != domain.StatePlaying {
		c.mu.Unlock()
		return
	}
	c.moveLocked(EventFinish)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// quiesce abandons the current turn so new work can start: the stop
// flag clears, the request is aborted, speech and playback stop, and the
// preset override goes away.
func (c *Controller) quiesce() {
	c.stop.Store(false)

	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()

	c.speech.Cancel()
	c.player.Halt()
	if c.overlay != nil {
		c.overlay.Clear()
	}
}

// cancelLocked aborts the turn, any replay and an open recording, and
// invalidates their ids.
func (c *Controller) cancelLocked() {
	if c.state == domain.StateListening && c.recorder != nil {
		c.recorder.Cancel()
	}
	if c.turnCancel != nil {
		c.turnCancel()
		c.turnCancel = nil
	}
	if c.replayCancel != nil {
		c.replayCancel()
		c.replayCancel = nil
	}
	c.turnID = ""
	c.processing = false
	c.replaying.Store(false)
	c.playID++
}

// ── Replay / Stop ────────────────────────────────────────────────

// CanReplay reports whether Replay would be accepted now.
func (c *Controller) CanReplay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canReplayLocked()
}

func (c *Controller) canReplayLocked() bool {
	return !c.processing &&
		c.state != domain.StateListening &&
		c.state != domain.StateProcessing &&
		!c.replaying.Load()
}

// Replay plays the last performance again, with speech suppressed while
// a preset video is on stage. Without scenes it re-speaks the last
// answer in the chat. It returns domain.ErrReplayUnavailable while
// processing, listening or already replaying, or when there is nothing
// to replay.
func (c *Controller) Replay(ctx context.Context) error {
	c.mu.Lock()
	if !c.canReplayLocked() || !c.replaying.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return domain.ErrReplayUnavailable
	}

	scenes := c.player.LastScenes()
	var line string
	if len(scenes) == 0 && c.chat != nil {
		if entry, err := c.chat.LastFrom(ctx, domain.SpeakerAI); err == nil {
			line = entry.Text
		}
	}
	if len(scenes) == 0 && strings.TrimSpace(line) == "" {
		c.replaying.Store(false)
		c.mu.Unlock()
		return domain.ErrReplayUnavailable
	}

	if err := c.moveLocked(EventReplay); err != nil {
		c.replaying.Store(false)
		c.mu.Unlock()
		return err
	}
	c.stop.Store(false)
	if c.replayCancel != nil {
		c.replayCancel()
	}
	replayCtx, cancel := context.WithCancel(ctx)
	c.replayCancel = cancel
	c.playID++
	playID := c.playID
	lang := c.lastLanguage
	if lang == "" {
		lang = c.language
	}
	prefer := c.character.VoicePreference()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	c.speech.Cancel()
	c.player.Halt()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		if len(scenes) > 0 {
			opts := playback.RunOptions{Language: lang, Suppressed: c.overlay != nil && c.overlay.Active()}
			if _, err := c.player.Play(replayCtx, scenes, opts); err != nil {
				c.log.Warn("session: replay: %v", err)
			}
		} else {
			c.speech.Speak(replayCtx, domain.Utterance{Text: line, Language: lang, Prefer: prefer})
		}
		c.finish(playID)
	}()
	return nil
}

// Stop halts everything and returns to Idle: the request is aborted,
// speech is cancelled, the preset video is paused, rewound and leaves
// fullscreen, and playback flags are cleared. The stop flag stays set
// until new work starts. Calling Stop again is harmless.
func (c *Controller) Stop(ctx context.Context) {
	c.stop.Store(true)

	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()

	c.speech.Cancel()
	if c.overlay != nil {
		c.overlay.Halt()
	}
	c.player.Halt()

	c.mu.Lock()
	c.moveLocked(EventStop)
	stopped := c.snapshotLocked()
	c.moveLocked(EventSettle)
	idle := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(stopped)
	c.emit(idle)
	c.log.Info("session: stopped")
}

// Stopped reports whether the stop flag is set. Playback checks it at
// every suspension point.
func (c *Controller) Stopped() bool { return c.stop.Load() }

// Wait blocks until every background turn, topic fetch and replay has
// returned.
func (c *Controller) Wait() { c.wg.Wait() }

// ── Settings / State ─────────────────────────────────────────────

// SetLanguage sets the language of the next question.
func (c *Controller) SetLanguage(tag string) {
	c.mu.Lock()
	c.language = tag
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// SetCharacter sets the character of the next question.
func (c *Controller) SetCharacter(ch domain.Character) {
	c.mu.Lock()
	c.character = ch
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// State returns the current session state.
func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Speaking reports whether an utterance is live.
func (c *Controller) Speaking() bool { return c.speech.IsActive() }

// fire applies an event under the lock and emits the new snapshot.
func (c *Controller) fire(e Event) error {
	c.mu.Lock()
	if err := c.moveLocked(e); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
	return nil
}

func (c *Controller) moveLocked(e Event) error {
	next, err := Transition(c.state, e)
	if err != nil {
		c.log.Debug("session: %v", err)
		return err
	}
	if next != c.state {
		c.log.Debug("session: %s -> %s (%s)", c.state, next, e)
	}
	c.state = next
	return nil
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		TurnID:     c.turnID,
		Processing: c.processing,
		Replaying:  c.replaying.Load(),
		Stopped:    c.stop.Load(),
		Language:   c.language,
		Character:  c.character,
	}
}

func (c *Controller) emit(s Snapshot) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *Controller) notify(ctx context.Context, msg string) {
	if c.notifier != nil {
		c.notifier.Notify(ctx, msg)
	}
}

func (c *Controller) notifyUrgent(ctx context.Context, msg string) {
	if c.notifier != nil {
		c.notifier.NotifyUrgent(ctx, msg)
	}
}
