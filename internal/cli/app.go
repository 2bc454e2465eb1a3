package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/repository/sqlite"
	"github.com/sakif/needley/internal/service"
)

var errNoSessions = errors.New("cli: sessions are not available from the command line")

// noSessions satisfies service.SessionController for commands that never
// log anyone in.
type noSessions struct{}

func (noSessions) Begin(context.Context, string) error { return errNoSessions }
func (noSessions) End(context.Context) error           { return errNoSessions }

// app is the service graph one command runs against.
type app struct {
	db       *sqlite.DB
	accounts *service.AccountService
	articles *service.ArticleService
}

func openApp(opts *RootOptions, stderr io.Writer) (*app, error) {
	db, err := sqlite.New(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	out := io.Discard
	if opts.Verbose {
		out = stderr
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return &app{
		db:       db,
		accounts: service.NewAccountService(db.Users(), auth.NewPasswordService(), noSessions{}, logger),
		articles: service.NewArticleService(db.Articles(), logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
