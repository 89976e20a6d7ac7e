package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dvo/boardsync/internal/board"
	"github.com/dvo/boardsync/internal/credential"
	"github.com/dvo/boardsync/internal/history"
	"github.com/dvo/boardsync/internal/model"
	"github.com/dvo/boardsync/internal/store"
)

// Version information set via ldflags
var version = "dev"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	columnStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Strikethrough(true).Faint(true)
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("boardsync %s\n", version)
		return
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return
	}

	// Config edits must not require a reachable store.
	if args[0] == "config" {
		if err := configCmd(*configPath, cfg, args[1:]); err != nil {
			fatal(err)
		}
		return
	}

	gw, closeGw, err := openGateway(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeGw()

	session := board.NewSession(gw, cfg.Actor.ID, cfg.Actor.Name)
	ctx := context.Background()

	switch args[0] {
	case "projects":
		err = listProjects(ctx, gw)
	case "board":
		if len(args) < 2 {
			err = fmt.Errorf("usage: boardsync board <project-id>")
			break
		}
		err = printBoard(ctx, session, args[1])
	case "history":
		projectID := ""
		if len(args) > 1 {
			projectID = args[1]
		}
		err = printHistory(ctx, session, projectID, cfg.Display.HistoryLimit)
	default:
		usage()
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Println("usage: boardsync [flags] <projects | board <project-id> | history [project-id] | config [config-flags]>")
}

// configCmd updates and persists the configuration file. Store secrets
// referenced from the DSN are written to the system keyring so the
// password never lands in the YAML.
func configCmd(path string, cfg *model.AppConfig, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	backend := fs.String("backend", cfg.Store.Backend, "store backend: sqlite or postgres")
	dbPath := fs.String("path", cfg.Store.Path, "sqlite database file")
	dsn := fs.String("dsn", cfg.Store.DSN, "postgres DSN, may reference keyring:<key>")
	actorID := fs.String("actor-id", cfg.Actor.ID, "actor id stamped on mutations")
	actorName := fs.String("actor-name", cfg.Actor.Name, "actor name stamped on mutations")
	setSecret := fs.String("set-secret", "", "store a keyring secret as <key>=<value>")
	deleteSecret := fs.String("delete-secret", "", "remove a keyring secret by key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *setSecret != "" {
		key, value, ok := strings.Cut(*setSecret, "=")
		if !ok || key == "" || value == "" {
			return fmt.Errorf("set-secret wants <key>=<value>")
		}
		if err := credential.Set(key, value); err != nil {
			return err
		}
		fmt.Printf("stored secret %q\n", key)
	}
	if *deleteSecret != "" {
		if err := credential.Delete(*deleteSecret); err != nil {
			return err
		}
		fmt.Printf("deleted secret %q\n", *deleteSecret)
	}

	if *backend != "sqlite" && *backend != "postgres" {
		return fmt.Errorf("unknown store backend %q", *backend)
	}
	cfg.Store.Backend = *backend
	cfg.Store.Path = *dbPath
	cfg.Store.DSN = *dsn
	cfg.Actor.ID = *actorID
	cfg.Actor.Name = *actorName

	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "boardsync: %v\n", err)
	os.Exit(1)
}

// openGateway builds the configured store gateway. A Postgres DSN may
// carry a keyring:<key> password placeholder resolved through the
// system keyring.
func openGateway(cfg *model.AppConfig) (store.Gateway, func() error, error) {
	switch cfg.Store.Backend {
	case "postgres":
		dsn, err := resolveDSN(cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgresStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// resolveDSN substitutes any keyring:<key> token in the DSN with the
// secret stored in the system keyring.
func resolveDSN(dsn string) (string, error) {
	i := strings.Index(dsn, "keyring:")
	if i < 0 {
		return dsn, nil
	}
	rest := dsn[i+len("keyring:"):]
	end := strings.IndexAny(rest, " @")
	key := rest
	if end >= 0 {
		key = rest[:end]
	}
	secret, err := credential.Get(key)
	if err != nil {
		return "", fmt.Errorf("resolving DSN secret %q: %w", key, err)
	}
	return strings.Replace(dsn, "keyring:"+key, secret, 1), nil
}

func listProjects(ctx context.Context, gw store.Gateway) error {
	projects, err := gw.GetProjects(ctx)
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render("Projects"))
	for _, p := range projects {
		fmt.Printf("  %s  %s\n", p.ID, p.Name)
	}
	return nil
}

// printBoard renders the kanban columns of one project.
func printBoard(ctx context.Context, session *board.Session, projectID string) error {
	if err := session.LoadProject(ctx, projectID); err != nil {
		return err
	}

	project := session.Project()
	fmt.Println(headerStyle.Render(project.Name))

	for _, status := range model.AllStatuses {
		tasks := session.TasksByStatus(status)
		fmt.Println(columnStyle.Render(strings.ToUpper(status.String())))
		if len(tasks) == 0 {
			fmt.Println(dimStyle.Render("  (empty)"))
			continue
		}
		for _, t := range tasks {
			line := fmt.Sprintf("  [P%d] %s", t.Priority, t.Title)
			if t.Completed {
				line = doneStyle.Render(line)
			}
			fmt.Println(line)
			if t.Reason != "" && t.Status.RequiresReason() {
				fmt.Println(dimStyle.Render("        reason: " + t.Reason))
			}
		}
	}
	return nil
}

// printHistory renders the grouped activity view for one project, or
// for every project when projectID is empty.
func printHistory(ctx context.Context, session *board.Session, projectID string, limit int) error {
	if projectID != "" {
		if err := session.LoadProject(ctx, projectID); err != nil {
			return err
		}
	}

	view, err := session.GetHistoryView(ctx, projectID, "", limit)
	if err != nil {
		return err
	}

	now := time.Now()
	if projectID == "" {
		for _, pg := range view.Projects {
			fmt.Println(headerStyle.Render("Project " + pg.ProjectID))
			printGroups(pg.Groups, now)
		}
		return nil
	}
	printGroups(view.Groups, now)
	return nil
}

func printGroups(groups []history.Group, now time.Time) {
	for _, g := range groups {
		fmt.Printf("%s %s\n",
			columnStyle.Render(g.Title),
			dimStyle.Render(history.RelativeTime(g.LastActivity, now)),
		)
		for _, e := range g.Entries {
			fmt.Printf("  %-8s %s  %s\n",
				e.Action, e.Detail,
				dimStyle.Render(history.RelativeTime(e.CreatedAt, now)),
			)
		}
	}
}
