package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/kidzstage/internal/display"
	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/session"
)

type cliApp struct {
	*stack
	parser domain.IntentParser
	stage  *stageControl
	ui     *display.UI
}

func (a *cliApp) run(ctx context.Context) {
	a.say(ctx, session.LineWelcome())

	uiCh := a.ui.InputChan()
	for {
		var input string
		select {
		case <-ctx.Done():
			return
		case v, ok := <-uiCh:
			if !ok {
				return
			}
			input = strings.TrimSpace(v)
		}
		if input == "" {
			continue
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if !a.handleIntent(ctx, intent) {
			return
		}
	}
}

// handleIntent runs one command. It returns false when the app should
// exit.
func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentAsk:
		if err := a.ctl.Ask(ctx, intent.Payload); err != nil {
			a.log.Warn("ask: %v", err)
		}
	case domain.IntentListen:
		if err := a.ctl.Listen(ctx); err != nil {
			a.log.Debug("listen: %v", err)
		}
	case domain.IntentDone:
		if err := a.ctl.Done(ctx); errors.Is(err, domain.ErrInvalidTransition) {
			a.ui.PrintHint("I'm not listening. Type 'listen' first.")
		} else if err != nil {
			a.log.Debug("done: %v", err)
		}
	case domain.IntentStop:
		a.ctl.Stop(ctx)
		a.stage.set(domain.ModeNormal)
		a.say(ctx, session.LineStopped())
	case domain.IntentReplay:
		a.replay(ctx)
	case domain.IntentFullscreen:
		a.stage.set(domain.ModeFullscreen)
	case domain.IntentNormal:
		a.stage.set(domain.ModeNormal)
	case domain.IntentHistory:
		a.showHistory(ctx)
	case domain.IntentPresets:
		a.showPresets(ctx)
	case domain.IntentLanguage:
		if intent.Payload == "" {
			a.ui.PrintHint("Language: " + a.ctl.Snapshot().Language)
			break
		}
		a.ctl.SetLanguage(intent.Payload)
		a.say(ctx, session.LineLanguage(intent.Payload))
	case domain.IntentCharacter:
		if intent.Payload == "" {
			a.ui.PrintHint("Character: " + string(a.ctl.Snapshot().Character))
			break
		}
		ch := domain.ParseCharacter(intent.Payload)
		a.ctl.SetCharacter(ch)
		a.say(ctx, session.LineCharacter(ch))
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentQuit:
		a.ctl.Stop(ctx)
		a.say(ctx, session.LineBye())
		return false
	default:
		a.say(ctx, session.LineUnknown(intent.Payload))
	}
	return true
}

func (a *cliApp) say(ctx context.Context, line string) {
	if err := a.notifier.Notify(ctx, line); err != nil {
		a.log.Warn("notify: %v", err)
	}
}

func (a *cliApp) replay(ctx context.Context) {
	busy := !a.ctl.CanReplay()
	err := a.ctl.Replay(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrReplayUnavailable) && busy:
		a.say(ctx, session.LineReplayBusy())
	case errors.Is(err, domain.ErrReplayUnavailable):
		a.say(ctx, session.LineNothingToReplay())
	default:
		a.log.Warn("replay: %v", err)
	}
}

func (a *cliApp) showHistory(ctx context.Context) {
	entries, err := a.chat.List(ctx)
	if err != nil {
		a.log.Error("listing chat: %v", err)
		return
	}
	if len(entries) == 0 {
		a.ui.PrintHint("No questions yet.")
		return
	}
	for _, e := range entries {
		a.ui.PrintChat(e)
	}
}

func (a *cliApp) showPresets(ctx context.Context) {
	presets, err := a.catalog.List(ctx)
	if err != nil {
		a.log.Error("listing presets: %v", err)
		return
	}
	a.ui.PrintHint("Videos I can show:")
	for _, p := range presets {
		a.ui.PrintHint(fmt.Sprintf("  %-22s ask about: %s", p.Title, strings.Join(p.Keywords, ", ")))
	}
}

func (a *cliApp) showHelp() {
	for _, l := range []string{
		"Type any question to see it acted out.",
		"listen / done     talk instead of typing",
		"replay            watch the last answer again",
		"stop              stop everything",
		"full / normal     fullscreen on or off (or wave an open hand; esc closes)",
		"lang <name>       english, hindi, bengali, tamil, telugu",
		"as <girl|boy>     pick who answers",
		"history, videos   show past questions or preset videos",
		"quit              leave",
	} {
		a.ui.PrintHint(l)
	}
}
