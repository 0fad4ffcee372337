package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/config"
	"escape-trail/internal/domain"
	"escape-trail/internal/infra/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs a single-player trail in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var catalogID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a trail in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
			setLogLevel(cfg.Log.Level)
			if catalogID == "" {
				catalogID = cfg.Catalog.ID
			}

			b, err := connectBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()
			catalogs, err := buildCatalogRepository(cfg, b)
			if err != nil {
				return err
			}
			hints, err := buildHintService(ctx, cfg, b)
			if err != nil {
				return err
			}
			service := buildGameService(memory.NewSessionStore(), catalogs, hints, cfg)
			return runPlay(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), service, catalogID)
		},
	}
	cmd.Flags().StringVar(&catalogID, "catalog", "", "catalog id (defaults to the configured one)")
	return cmd
}

type terminal struct {
	service *app.GameService
	out     io.Writer
	id      string
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, service *app.GameService, catalogID string) error {
	snap, err := service.Start(ctx, catalogID)
	if err != nil {
		return err
	}
	t := &terminal{service: service, out: out, id: snap.SessionID}
	defer service.End(ctx, t.id)

	fmt.Fprintln(out, titleStyle.Render("Escape trail: "+snap.CatalogID))
	fmt.Fprintln(out, mutedStyle.Render("commands: hint, map, go <n>, quit"))
	t.render(snap)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		done, err := t.handle(ctx, line)
		if err != nil {
			fmt.Fprintln(out, badStyle.Render(err.Error()))
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}

func (t *terminal) handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "q":
		return true, nil
	case "hint", "h":
		snap, _, err := t.service.RequestHint(ctx, t.id)
		if err != nil {
			return false, err
		}
		if snap.Hint != "" {
			fmt.Fprintln(t.out, goldStyle.Render("Indizio: ")+snap.Hint)
		}
		return false, nil
	case "map", "m":
		snap, err := t.service.Snapshot(ctx, t.id)
		if err != nil {
			return false, err
		}
		t.renderMap(snap)
		return false, nil
	case "go":
		if len(fields) != 2 {
			return false, errors.New("usage: go <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, err
		}
		snap, err := t.service.Navigate(ctx, t.id, n-1)
		if err != nil {
			return false, err
		}
		t.render(snap)
		return false, nil
	}

	snap, err := t.service.Snapshot(ctx, t.id)
	if err != nil {
		return false, err
	}
	submit, err := t.applyAnswer(ctx, snap, line, fields)
	if err != nil || !submit {
		return false, err
	}
	return t.submit(ctx)
}

// applyAnswer turns a line into draft edits and reports whether to submit.
func (t *terminal) applyAnswer(ctx context.Context, snap app.Snapshot, line string, fields []string) (bool, error) {
	edit := func(op domain.Edit) error {
		next, err := t.service.Edit(ctx, t.id, op)
		if err == nil && (op.Variant() == domain.VariantOrdering || op.Variant() == domain.VariantMatching) {
			t.renderDraft(next)
		}
		return err
	}

	switch snap.Puzzle.Variant {
	case domain.VariantArithmetic:
		return true, edit(domain.SetText{Text: line})
	case domain.VariantOddOneOut:
		id := fields[0]
		if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(snap.Puzzle.Choices.Options) {
			id = snap.Puzzle.Choices.Options[n-1].ID
		}
		return true, edit(domain.Select{ChoiceID: id})
	case domain.VariantOrdering:
		if fields[0] == "ok" {
			return true, nil
		}
		if len(fields) != 2 || (fields[0] != "u" && fields[0] != "d") {
			return false, errors.New("usage: u <n> | d <n> | ok")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, err
		}
		dir := domain.DirectionUp
		if fields[0] == "d" {
			dir = domain.DirectionDown
		}
		return false, edit(domain.Move{Index: n - 1, Direction: dir})
	case domain.VariantMatching:
		if fields[0] == "ok" {
			return true, nil
		}
		left, right, ok := strings.Cut(line, "=")
		if !ok {
			return false, errors.New("usage: <left>=<right> | ok")
		}
		return false, edit(domain.Assign{LeftID: strings.TrimSpace(left), RightID: strings.TrimSpace(right)})
	}
	return false, nil
}

func (t *terminal) submit(ctx context.Context) (bool, error) {
	out, _, err := t.service.Submit(ctx, t.id)
	if err != nil {
		return false, err
	}
	if !out.Correct {
		fmt.Fprintf(t.out, "%s %s\n", badStyle.Render(out.Notice.Message), mutedStyle.Render(fmt.Sprintf("-%d punti", out.Penalty)))
		return false, nil
	}
	fmt.Fprintf(t.out, "%s %s\n", goodStyle.Render(out.Notice.Message), mutedStyle.Render(fmt.Sprintf("+%d punti", out.Awarded)))

	time.Sleep(out.AdvanceAfter)
	snap, err := t.service.Advance(ctx, t.id)
	if err != nil {
		return false, err
	}
	if snap.State.Phase == domain.PhaseCompleted {
		t.renderSummary(snap)
		return true, nil
	}
	t.render(snap)
	return false, nil
}

func (t *terminal) render(snap app.Snapshot) {
	p := snap.Puzzle
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", headerStyle.Render(fmt.Sprintf("%d/%d  %s", snap.State.ActiveIndex+1, len(snap.Map), p.Title)), mutedStyle.Render(p.Location))
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Description)
	}
	switch p.Variant {
	case domain.VariantArithmetic:
		b.WriteString("\n")
		for _, c := range p.Choices.Clues {
			fmt.Fprintf(&b, "  %s = %s\n", c.Label, goldStyle.Render(c.Value))
		}
		b.WriteString(mutedStyle.Render("type the total"))
	case domain.VariantOddOneOut:
		b.WriteString("\n")
		for i, o := range p.Choices.Options {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, o.Label)
		}
		b.WriteString(mutedStyle.Render("pick the intruder by number"))
	case domain.VariantOrdering:
		b.WriteString(mutedStyle.Render("\nreorder with u <n> / d <n>, then ok"))
	case domain.VariantMatching:
		b.WriteString(mutedStyle.Render("\nassign with <left>=<right>, then ok"))
	}
	fmt.Fprintln(t.out, panelStyle.Render(b.String()))
	fmt.Fprintln(t.out, mutedStyle.Render(fmt.Sprintf("punti %d  errori %d  tempo %s", snap.State.Score, snap.State.ErrorCount, snap.Elapsed)))
	if p.Variant == domain.VariantOrdering || p.Variant == domain.VariantMatching {
		t.renderDraft(snap)
	}
}

func (t *terminal) renderDraft(snap app.Snapshot) {
	switch d := snap.Draft.(type) {
	case *domain.OrderingDraft:
		for i, s := range d.Steps {
			fmt.Fprintf(t.out, "  %d. %s\n", i+1, s)
		}
	case *domain.MatchingDraft:
		rights := make(map[string]string, len(snap.Puzzle.Choices.Right))
		for _, r := range snap.Puzzle.Choices.Right {
			rights[r.ID] = r.Label
		}
		for _, l := range snap.Puzzle.Choices.Left {
			assigned := mutedStyle.Render("?")
			if r, ok := d.Pairs[l.ID]; ok {
				assigned = rights[r]
			}
			fmt.Fprintf(t.out, "  %s (%s) -> %s\n", l.Label, l.ID, assigned)
		}
		ids := make([]string, 0, len(rights))
		for id := range rights {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(t.out, "    %s: %s\n", id, rights[id])
		}
	}
}

func (t *terminal) renderMap(snap app.Snapshot) {
	for _, e := range snap.Map {
		label := fmt.Sprintf("%d. %s", e.Index+1, e.Title)
		switch e.Status {
		case domain.MapSolved:
			fmt.Fprintln(t.out, goodStyle.Render(label))
		case domain.MapCurrent:
			fmt.Fprintln(t.out, goldStyle.Render(label))
		default:
			fmt.Fprintln(t.out, mutedStyle.Render(label))
		}
	}
}

func (t *terminal) renderSummary(snap app.Snapshot) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Roma è salva!") + "\n")
	fmt.Fprintf(&b, "punti %d  errori %d  tempo %s\n", snap.State.Score, snap.State.ErrorCount, snap.Elapsed)
	for _, title := range snap.State.UnlockedTitles {
		fmt.Fprintf(&b, "  %s\n", goldStyle.Render(title))
	}
	fmt.Fprintln(t.out, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}
