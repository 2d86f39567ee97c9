package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/kidzstage/internal/conversation"
	"github.com/hammamikhairi/kidzstage/internal/display"
	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/preset"
	"github.com/hammamikhairi/kidzstage/internal/session"
)

var runFlags struct {
	noVoice bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the interactive stage",
	Args:  cobra.NoArgs,
	RunE:  runStage,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runFlags.noVoice, "no-voice", false, "disable microphone input even if whisper is installed")
}

func runStage(cmd *cobra.Command, args []string) error {
	loader, log, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()
	cfg := loader.Config()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ui := display.NewUI()
	text := conversation.NewCLINotifier(log.With("notify"), ui.Printf)
	s := buildStack(ctx, cfg, log, wireOptions{
		text:       text,
		onPlayback: ui.SetPlayback,
		voice:      !runFlags.noVoice,
	})

	// Feed the view.
	s.ctl.OnChange(func(snap session.Snapshot) {
		ui.SetSession(snap.State, snap.Language, snap.Character)
	})
	s.ctl.OnTopic(ui.PrintTopic)
	s.chat.OnAppend(ui.PrintChat)
	s.overlay.OnChange(func(st preset.OverlayState) {
		title := ""
		if st.Preset != nil {
			title = st.Preset.Title
		}
		ui.SetPreset(title, st.Playing, st.Fullscreen)
	})
	snap := s.ctl.Snapshot()
	ui.SetSession(snap.State, snap.Language, snap.Character)

	stage := newStageControl(cfg, s.client, ui, s.overlay, s.notifier, log)
	ui.OnEscape(func() { stage.set(domain.ModeNormal) })

	loader.Watch(s.applyReload)

	app := &cliApp{
		stack:  s,
		parser: conversation.NewKeywordParser(log.With("parser")),
		stage:  stage,
		ui:     ui,
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type a question, or 'help' for commands. 'quit' to exit."))
	if s.recorder != nil {
		fmt.Println(display.BannerStyle.Render("  Type 'listen' to talk, then 'done' when you finish."))
	}
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stage.run(gctx)
	})
	g.Go(func() error {
		select {
		case <-ui.QuitChan():
			return nil
		case <-waitReady(ui):
		}
		app.run(gctx)
		ui.Quit()
		return nil
	})
	g.Go(func() error {
		// Bubble Tea owns the terminal until quit.
		defer cancel()
		if err := ui.Run(); err != nil {
			return fmt.Errorf("display: %w", err)
		}
		return nil
	})

	err = g.Wait()
	s.ctl.Stop(context.Background())
	s.ctl.Wait()
	return err
}

func waitReady(ui *display.UI) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		ui.WaitReady()
		close(ch)
	}()
	return ch
}
