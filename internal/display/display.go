// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type manages a persistent stage status bar and an input
// prompt at the bottom of the terminal. While the stage is fullscreen
// the current subtitle is drawn in a framed box above the bar. All
// other output is printed above the rendered area via Program.Println /
// Printf, ensuring concurrent writes never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	stateBusyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	stateStopStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	stateIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	stageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#f9a8d4")).
			Foreground(lipgloss.Color("#fdf4ff")).
			Bold(true).
			Align(lipgloss.Center, lipgloss.Center)

	// ── Output styles (soft palette) ──

	// BannerStyle is a muted slate for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// Character lines.
	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	childStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f9a8d4")).
			Bold(true)

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

// ── Status ───────────────────────────────────────────────────────

// Status is everything the status bar and the stage box draw.
type Status struct {
	Session   domain.SessionState
	Mode      domain.Mode
	Zoom      float64
	Playback  domain.PlaybackState
	Language  string
	Character domain.Character
	Preset    string // title of the preset video on screen, "" when none
	Playing   bool   // preset video running
	VideoFull bool   // preset video fullscreen
	Camera    string // last camera/classifier error, "" when healthy
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call the setters, [UI.Println], [UI.Printf], and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool

	mu       sync.Mutex
	status   Status
	onEscape func()
}

// NewUI creates the display. Call Run() to start.
func NewUI() *UI {
	return &UI{
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
		status:  Status{Zoom: 1},
	}
}

// OnEscape registers the handler for the Escape key while the stage is
// fullscreen.
func (u *UI) OnEscape(fn func()) {
	u.mu.Lock()
	u.onEscape = fn
	u.mu.Unlock()
}

// Status returns a copy of what is currently drawn.
func (u *UI) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

func (u *UI) update(fn func(*Status)) {
	u.mu.Lock()
	fn(&u.status)
	u.mu.Unlock()
}

// Apply switches the stage framing. It makes the UI a gesture action.
func (u *UI) Apply(mode domain.Mode) {
	u.update(func(s *Status) { s.Mode = mode })
}

// SetZoom records the stage zoom level.
func (u *UI) SetZoom(level float64) {
	u.update(func(s *Status) { s.Zoom = level })
}

// SetSession records the controller state.
func (u *UI) SetSession(state domain.SessionState, lang string, ch domain.Character) {
	u.update(func(s *Status) {
		s.Session = state
		s.Language = lang
		s.Character = ch
	})
}

// SetPlayback records the sequencer's now-playing view.
func (u *UI) SetPlayback(ps domain.PlaybackState) {
	u.update(func(s *Status) { s.Playback = ps })
}

// SetPreset records the preset video on screen.
func (u *UI) SetPreset(title string, playing, fullscreen bool) {
	u.update(func(s *Status) {
		s.Preset = title
		s.Playing = playing
		s.VideoFull = fullscreen
	})
}

// SetCameraError records the last camera problem; "" clears it.
func (u *UI) SetCameraError(msg string) {
	u.update(func(s *Status) { s.Camera = msg })
}

// Println prints a line above the prompt. Thread-safe.
// If the program hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format, a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintChat prints one chat history entry.
func (u *UI) PrintChat(e domain.ChatEntry) {
	u.Println(FormatChat(e))
}

// FormatChat renders a chat entry with its speaker tag.
func FormatChat(e domain.ChatEntry) string {
	if e.Speaker == domain.SpeakerAI {
		return secondaryStyle.Render("[stage] ") + chatStyle.Render(e.Text)
	}
	return secondaryStyle.Render("[child] ") + childStyle.Render(e.Text)
}

// PrintTopic prints the topic card that accompanies a performance.
func (u *UI) PrintTopic(t *domain.Topic) {
	if t == nil {
		return
	}
	u.Println(FormatTopic(t))
}

// FormatTopic renders a topic card.
func FormatTopic(t *domain.Topic) string {
	var b strings.Builder
	if t.Explainer != nil {
		b.WriteString(titleStyle.Render("  " + t.Explainer.Title))
		if t.Explainer.Summary != "" {
			b.WriteString("\n" + primaryStyle.Render("  "+t.Explainer.Summary))
		}
		for _, p := range t.Explainer.Points {
			b.WriteString("\n" + primaryStyle.Render("   - "+p))
		}
	}
	if img := t.Image; img != nil && !img.Placeholder {
		b.WriteString("\n" + secondaryStyle.Render("  image: "+img.ImageURL))
		if img.PageURL != "" {
			b.WriteString("\n" + secondaryStyle.Render("  more:  "+img.PageURL))
		}
	}
	return b.String()
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("kidz") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	u.program = tea.NewProgram(u.newModel())
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

func (u *UI) newModel() model {
	ti := textinput.New()
	// Plain-text prompt: styled prompts break the textinput width math.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60 // updated on first WindowSizeMsg

	return model{
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		status:  u.Status,
		escape: func() {
			u.mu.Lock()
			fn := u.onEscape
			u.mu.Unlock()
			if fn != nil {
				fn()
			}
		},
		echoFn: u.PrintUserInput,
		view:   Status{Zoom: 1},
	}
}

// ── Bubble Tea model ─────────────────────────────────────────────

const (
	prompt       = "kidz> "
	refreshEvery = 150 * time.Millisecond
	stageHeight  = 7
)

type model struct {
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	status  func() Status
	escape  func()
	echoFn  func(string) // prints user input into scrollback
	view    Status
	width   int
}

// Messages.
type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if st := m.status(); st.Mode != domain.ModeFullscreen && !st.VideoFull {
				return m, nil
			}
			escape := m.escape
			return m, func() tea.Msg {
				escape()
				return nil
			}
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Echo outside Update so it won't deadlock on msgs.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		m.view = m.status()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) titleStr() string {
	s := m.view
	if s.Playback.Active && s.Playback.Subtitle != "" {
		return "KidzStage: " + truncate(s.Playback.Subtitle, 40)
	}
	return "KidzStage: " + s.Session.String()
}

func (m model) View() string {
	var b strings.Builder

	if m.view.Mode == domain.ModeFullscreen || m.view.VideoFull {
		b.WriteString(m.renderStage())
		b.WriteByte('\n')
	}
	b.WriteString(m.renderBar())
	b.WriteByte('\n')

	// Blank line before prompt for visual separation.
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderStage() string {
	s := m.view
	text := s.Playback.Subtitle
	switch {
	case s.Preset != "":
		text = "▶ " + s.Preset
		if !s.Playing {
			text = "❚❚ " + s.Preset
		}
	case text == "":
		text = "(" + characterName(s.Character) + " is waiting)"
	}
	w := m.termWidth() - 2
	return stageStyle.Width(w).Height(stageHeight).Render(text) + "\n" +
		secondaryStyle.Render(fmt.Sprintf("  zoom %.1fx  ·  esc to close", s.Zoom))
}

func (m model) renderBar() string {
	s := m.view
	parts := []string{
		stateStyle(s.Session).Render(s.Session.String()),
		labelStyle.Render(characterName(s.Character) + " · " + orDefault(s.Language, "en")),
		labelStyle.Render(s.Mode.String()),
	}
	if s.Playback.Speaking {
		parts = append(parts, stateBusyStyle.Render("speaking"))
	}
	if s.Preset != "" {
		state := "paused"
		if s.Playing {
			state = "playing"
		}
		parts = append(parts, labelStyle.Render("video: ")+stateBusyStyle.Render(s.Preset+" ("+state+")"))
	}
	if s.Mode != domain.ModeFullscreen && s.Playback.Active && s.Playback.Subtitle != "" {
		parts = append(parts, primaryStyle.Render(truncate(s.Playback.Subtitle, 60)))
	}
	if s.Camera != "" {
		parts = append(parts, stateStopStyle.Render("camera: "+truncate(s.Camera, 40)))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	return barBg.Width(m.termWidth()).Render(content)
}

func (m model) termWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

// ── Helpers ──────────────────────────────────────────────────────

func stateStyle(s domain.SessionState) lipgloss.Style {
	switch s {
	case domain.StateIdle:
		return stateIdleStyle
	case domain.StateStopped:
		return stateStopStyle
	default:
		return stateBusyStyle
	}
}

func characterName(c domain.Character) string {
	if c == "" {
		return string(domain.CharacterGirl)
	}
	return string(c)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
