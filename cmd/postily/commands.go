package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/blackmichael/postily/internal/domain"
	"github.com/blackmichael/postily/internal/segment"
	"github.com/blackmichael/postily/internal/transcript"
)

type ParseCmd struct {
	Transcript string `arg:"" type:"existingfile" help:"OCR transcript (.txt, optionally .xz compressed)."`
	Out        string `name:"out" short:"o" type:"path" help:"Write JSON to this file instead of stdout."`
}

func (c *ParseCmd) Run(g *globals) error {
	postils, stats, err := g.segment(c.Transcript)
	if err != nil {
		return err
	}

	w := g.out
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(postils); err != nil {
		return fmt.Errorf("write postily: %w", err)
	}

	g.logger.Info("parsed transcript",
		"postily", stats.Total,
		"unnumbered", stats.Unnumbered,
		"unresolved", stats.Unresolved,
		"without_citation", stats.WithoutCitation,
	)
	return nil
}

type ImportCmd struct {
	Input  string `arg:"" type:"existingfile" help:"Postily JSON written by parse, or a transcript."`
	Remote bool   `name:"remote" help:"Send to the server at $$POSTILY_API_URL instead of the local database."`
	DryRun bool   `name:"dry-run" help:"Load and report without storing."`
}

func (c *ImportCmd) Run(g *globals) error {
	postils, err := g.loadPostils(c.Input)
	if err != nil {
		return err
	}
	if c.DryRun {
		fmt.Fprintf(g.out, "would import %d postily\n", len(postils))
		return nil
	}

	ctx := context.Background()
	b, closeFn, err := g.backend(ctx, c.Remote)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := b.Import(ctx, postils)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "imported %d of %d postily\n", report.Inserted, report.TotalSent)
	for _, e := range report.Errors {
		fmt.Fprintf(g.out, "  %s\n", e)
	}
	if !report.Success() {
		return fmt.Errorf("%d batches failed", len(report.Errors))
	}
	return nil
}

type MatchCmd struct {
	Input  string `arg:"" optional:"" default:"-" help:"Markdown lectionary page, or - for stdin."`
	Limit  int    `name:"limit" short:"n" help:"Show at most this many postily."`
	JSON   bool   `name:"json" help:"Print matches as JSON."`
	Remote bool   `name:"remote" help:"Ask the server at $$POSTILY_API_URL."`
}

func (c *MatchCmd) Run(g *globals) error {
	var (
		raw []byte
		err error
	)
	if c.Input == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(c.Input)
	}
	if err != nil {
		return fmt.Errorf("read readings: %w", err)
	}

	ctx := context.Background()
	b, closeFn, err := g.backend(ctx, c.Remote)
	if err != nil {
		return err
	}
	defer closeFn()

	matches, err := b.FindMatches(ctx, string(raw))
	if err != nil {
		return err
	}
	if c.Limit > 0 && len(matches) > c.Limit {
		matches = matches[:c.Limit]
	}

	if c.JSON {
		enc := json.NewEncoder(g.out)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(g.out, "no matching postily")
		return nil
	}
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	for _, m := range matches {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\n", m.PostilNumber, m.Title, m.MatchedRef, m.SourceRef)
	}
	return tw.Flush()
}

type CountCmd struct {
	Remote bool `name:"remote" help:"Ask the server at $$POSTILY_API_URL."`
}

func (c *CountCmd) Run(g *globals) error {
	ctx := context.Background()
	b, closeFn, err := g.backend(ctx, c.Remote)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := b.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out, n)
	return nil
}

type ListCmd struct {
	Remote bool `name:"remote" help:"Ask the server at $$POSTILY_API_URL."`
}

func (c *ListCmd) Run(g *globals) error {
	ctx := context.Background()
	b, closeFn, err := g.backend(ctx, c.Remote)
	if err != nil {
		return err
	}
	defer closeFn()

	postils, err := b.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	for _, p := range postils {
		state := ""
		if !p.IsActive {
			state = "inactive"
		}
		fmt.Fprintf(tw, "%s\t%d.\t%s\t%s\t%s\n", p.ID, p.PostilNumber, p.Title, strings.Join(p.BiblicalReferences, "; "), state)
	}
	return tw.Flush()
}

type PurgeCmd struct {
	Yes    bool `name:"yes" help:"Confirm deleting every postil."`
	Remote bool `name:"remote" help:"Purge the server at $$POSTILY_API_URL."`
}

func (c *PurgeCmd) Run(g *globals) error {
	if !c.Yes {
		return errors.New("refusing to delete every postil without --yes")
	}
	ctx := context.Background()
	b, closeFn, err := g.backend(ctx, c.Remote)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := b.DeleteAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "deleted %d postily\n", n)
	return nil
}

type DeactivateCmd struct {
	ID     string `arg:"" help:"Postil ID as shown by list."`
	Remote bool   `name:"remote" help:"Deactivate on the server at $$POSTILY_API_URL."`
}

func (c *DeactivateCmd) Run(g *globals) error {
	ctx := context.Background()
	b, closeFn, err := g.backend(ctx, c.Remote)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := b.Deactivate(ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "deactivated %s\n", c.ID)
	return nil
}

func (g *globals) segment(path string) ([]domain.Postil, segment.Stats, error) {
	lines, err := transcript.Open(path)
	if err != nil {
		return nil, segment.Stats{}, err
	}
	extractor, err := g.cfg.Extractor()
	if err != nil {
		return nil, segment.Stats{}, err
	}
	postils, stats := segment.New(g.cfg.SegmentOptions(), extractor, g.logger).Segment(lines)
	return postils, stats, nil
}

// loadPostils reads a JSON file written by parse, accepting either a bare
// array or an import body, or segments a transcript.
func (g *globals) loadPostils(path string) ([]domain.Postil, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		postils, _, err := g.segment(path)
		return postils, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read postily: %w", err)
	}
	var postils []domain.Postil
	if err := json.Unmarshal(raw, &postils); err == nil {
		return postils, nil
	}
	var body struct {
		Postily []domain.Postil `json:"postily"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return body.Postily, nil
}
