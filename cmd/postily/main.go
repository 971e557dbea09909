// Command postily segments sermon transcripts, manages the stored corpus and
// looks up postily for a lectionary page.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/blackmichael/postily/internal/apiclient"
	"github.com/blackmichael/postily/internal/app"
	"github.com/blackmichael/postily/internal/config"
	"github.com/blackmichael/postily/internal/domain"
	"github.com/blackmichael/postily/internal/logging"
)

// CLI defines the command-line interface.
type CLI struct {
	Config   string `name:"config" short:"c" type:"existingfile" help:"YAML tuning file (default: $$POSTILY_CONFIG)."`
	LogLevel string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level for diagnostics on stderr."`

	Parse      ParseCmd      `cmd:"" help:"Segment an OCR transcript into postily JSON."`
	Import     ImportCmd     `cmd:"" help:"Store postily from JSON or a transcript."`
	Match      MatchCmd      `cmd:"" help:"Find postily for a lectionary page in Markdown."`
	Count      CountCmd      `cmd:"" help:"Print the number of stored postily."`
	List       ListCmd       `cmd:"" help:"List stored postily."`
	Purge      PurgeCmd      `cmd:"" help:"Delete every stored postil."`
	Deactivate DeactivateCmd `cmd:"" help:"Hide one postil from matching."`
}

// globals is shared state bound into every command's Run.
type globals struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// backend is the set of corpus operations a command may run, either against
// the configured database or a remote server.
type backend interface {
	Import(ctx context.Context, postils []domain.Postil) (*domain.ImportReport, error)
	FindMatches(ctx context.Context, markdown string) ([]domain.MatchResult, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]domain.Postil, error)
	DeleteAll(ctx context.Context) (int64, error)
	Deactivate(ctx context.Context, id string) error
}

type remoteBackend struct {
	*apiclient.Client
}

func (r remoteBackend) FindMatches(ctx context.Context, markdown string) ([]domain.MatchResult, error) {
	return r.Match(ctx, markdown, 0)
}

func (g *globals) backend(ctx context.Context, remote bool) (backend, func(), error) {
	if remote {
		g.logger.Debug("using remote API", "url", g.cfg.APIURL)
		return remoteBackend{apiclient.NewClient(g.cfg.APIURL, g.cfg.AdminToken)}, func() {}, nil
	}
	a, err := app.New(ctx, g.cfg, g.logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, func() { a.Close() }, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("postily"),
		kong.Description("Czech postil corpus tool: segment transcripts, import, and match against lectionary readings."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cli.Config != "" {
		f, err := config.LoadFile(cli.Config)
		if err != nil {
			return err
		}
		cfg.File = f
		if cfg.ImportBatchSize == 0 {
			cfg.ImportBatchSize = f.ImportBatchSize
		}
	}

	logger, err := logging.New(stderr, cli.LogLevel, "text")
	if err != nil {
		return err
	}

	return kctx.Run(&globals{cfg: cfg, logger: logger, out: stdout})
}
