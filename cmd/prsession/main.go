package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/kwalsh/prsession/internal/adapter/driven/github"
	sqliteadapter "github.com/kwalsh/prsession/internal/adapter/driven/sqlite"
	"github.com/kwalsh/prsession/internal/adapter/driven/uuidgen"
	"github.com/kwalsh/prsession/internal/application"
	"github.com/kwalsh/prsession/internal/config"
	"github.com/kwalsh/prsession/internal/domain/model"
	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// app bundles everything a subcommand needs, wired once in Before.
type app struct {
	db    *sqliteadapter.DB
	svc   *application.SessionService
	creds driven.CredentialStore
	host  string
}

func run(ctx context.Context) error {
	var a app

	cmd := &cli.Command{
		Name:  "prsession",
		Usage: "Persist and inspect the state of a pull-request review session",
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load()
			if err != nil {
				return ctx, err
			}

			db, err := sqliteadapter.NewDB(cfg.DBPath)
			if err != nil {
				return ctx, err
			}
			if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
				db.Close()
				return ctx, err
			}
			if err := db.CheckSchemaVersion(ctx); err != nil {
				db.Close()
				return ctx, err
			}
			slog.Info("database opened", "path", cfg.DBPath)

			credStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

			// Stored credentials take priority over env vars.
			token := cfg.GitHubToken
			if stored, err := credStore.Get(ctx, "github"); err == nil && stored != "" {
				token = stored
			}

			var fetcher driven.RemoteFetcher
			if token != "" {
				fetcher = githubadapter.NewClient(token)
			} else {
				slog.Info("no github token configured, refresh disabled")
			}

			a = app{
				db: db,
				svc: application.NewSessionService(
					sqliteadapter.NewReviewRepo(db),
					sqliteadapter.NewBufferRepo(db),
					sqliteadapter.NewCommentRepo(db),
					fetcher,
					uuidgen.New(),
					slog.Default(),
				),
				creds: credStore,
				host:  cfg.GitHubHost,
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			openCmd(&a),
			refreshCmd(&a),
			showCmd(&a),
			pathCmd(&a),
			deleteCmd(&a),
			setTokenCmd(&a),
		},
	}

	return cmd.Run(ctx, os.Args)
}

func openCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Start a review session for a pull request",
		ArgsUsage: "<owner/repo#number>",
		Action: func(ctx context.Context, c *cli.Command) error {
			owner, repo, number, err := parseSlug(c.Args().First())
			if err != nil {
				return err
			}

			review := &model.Review{Owner: owner, Repo: repo, Number: number, Host: a.host}
			if err := a.svc.CreateReview(ctx, review); err != nil {
				return err
			}

			if err := a.svc.Refresh(ctx, review.ID); err != nil {
				if errors.Is(err, application.ErrNoFetcher) {
					slog.Warn("session created without remote data", "id", review.ID)
				} else {
					return err
				}
			}

			fmt.Println(review.ID)
			return nil
		},
	}
}

func refreshCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "refresh",
		Usage:     "Re-fetch remote review data for a session",
		ArgsUsage: "<session-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return a.svc.Refresh(ctx, c.Args().First())
		},
	}
}

func showCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a session summary",
		ArgsUsage: "<session-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()

			summary, err := a.svc.GetReviewSummary(ctx, id)
			if err != nil {
				return err
			}
			if summary == nil {
				return fmt.Errorf("session %s: %w", id, driven.ErrReviewNotFound)
			}

			fmt.Printf("review:  %s/%s#%d\n", summary.Owner, summary.Repo, summary.Number)
			fmt.Printf("sha:     %s\n", summary.SHA)

			diff, err := a.svc.GetRawDiff(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("diff:    %d bytes\n", len(diff))

			comments, err := a.svc.GetRawComments(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("reviews: %d\n", len(comments))

			cur, err := a.svc.GetCurrentPath(ctx, id)
			if err != nil {
				return err
			}
			if cur != nil {
				fmt.Printf("current: %s\n", cur.Name)
				if cur.HeadPos != nil {
					fmt.Printf("headpos: %d\n", *cur.HeadPos)
				}
			}
			return nil
		},
	}
}

func pathCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "path",
		Usage:     "Select the current file path of a session",
		ArgsUsage: "<session-id> <file-path>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 2 {
				return errors.New("expected <session-id> <file-path>")
			}
			return a.svc.SetCurrentPath(ctx, c.Args().Get(0), c.Args().Get(1))
		},
	}
}

func deleteCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a session and all its state",
		ArgsUsage: "<session-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return a.svc.DeleteReview(ctx, c.Args().First())
		},
	}
}

func setTokenCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "set-token",
		Usage:     "Store the GitHub token in the encrypted credential store",
		ArgsUsage: "<token>",
		Action: func(ctx context.Context, c *cli.Command) error {
			token := c.Args().First()
			if token == "" {
				return errors.New("expected <token>")
			}
			return a.creds.Set(ctx, "github", token)
		},
	}
}

// parseSlug splits "owner/repo#number" into its parts.
func parseSlug(slug string) (owner, repo string, number int, err error) {
	rest, num, ok := strings.Cut(slug, "#")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid pull request reference %q, want owner/repo#number", slug)
	}

	owner, repo, ok = strings.Cut(rest, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", 0, fmt.Errorf("invalid repository %q, want owner/repo", rest)
	}

	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number %q", num)
	}

	return owner, repo, number, nil
}
