package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/kidzstage/internal/conversation"
	"github.com/hammamikhairi/kidzstage/internal/display"
	"github.com/hammamikhairi/kidzstage/internal/domain"
)

var askFlags struct {
	lang      string
	character string
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question, play the answer and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askFlags.lang, "lang", "", "question language (english, hindi, bengali, tamil, telugu or a tag)")
	askCmd.Flags().StringVar(&askFlags.character, "as", "", "character that answers: girl or boy")
}

func runAsk(cmd *cobra.Command, args []string) error {
	loader, log, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := *loader.Config()
	if askFlags.lang != "" {
		cfg.Session.Language = conversation.LanguageTag(askFlags.lang)
	}
	if askFlags.character != "" {
		cfg.Session.Character = strings.ToLower(askFlags.character)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	out := cmd.OutOrStdout()
	text := conversation.NewCLINotifier(log.With("notify"), func(format string, a ...interface{}) {
		fmt.Fprintf(out, format+"\n", a...)
	})
	s := buildStack(ctx, &cfg, log, wireOptions{text: text})

	var answered atomic.Bool
	s.ctl.OnAnswer(func(*domain.Answer) { answered.Store(true) })
	s.ctl.OnTopic(func(t *domain.Topic) {
		if t != nil {
			fmt.Fprintln(out, display.FormatTopic(t))
		}
	})
	s.chat.OnAppend(func(e domain.ChatEntry) { fmt.Fprintln(out, display.FormatChat(e)) })

	go func() {
		<-ctx.Done()
		s.ctl.Stop(context.Background())
	}()

	if err := s.ctl.Ask(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	s.ctl.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if !answered.Load() {
		return fmt.Errorf("no answer from %s", cfg.Backend.URL)
	}
	return nil
}
