package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"

	"github.com/charadev96/galleryclient/internal/client"
	"github.com/charadev96/galleryclient/internal/client/api"
	"github.com/charadev96/galleryclient/internal/client/config"
	"github.com/charadev96/galleryclient/internal/client/domain"
	"github.com/charadev96/galleryclient/internal/client/guard"
	"github.com/charadev96/galleryclient/internal/shared/log"
)

const usage = `usage: gallery [flags] <command> [args]

commands:
  login              sign in and persist the session token
  logout             sign out and forget the session token
  whoami             show the current session
  open <path>        navigate to a route, signing in when it is guarded
  albums             list albums
  new-album <title>  create an album (requires sign in)

flags:
`

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gallery", "config.toml")
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path of the TOML config file")
	apiURL := flag.String("api", "", "Override the API base URL (e.g. https://gallery.example.com/api/)")
	yes := flag.Bool("y", false, "Do not ask for confirmation")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New("client")

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.OverrideBaseURL(*apiURL); err != nil {
		logger.Fatal().Err(err).Msg("invalid -api flag")
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		logger.Fatal().Err(err).Msg("failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := client.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize client")
	}
	defer app.Close()

	// The CLI always waits for rehydration, a command runs against a
	// settled session.
	<-app.Start(ctx)

	cmd := &command{app: app, logger: &logger, yes: *yes}
	if err := cmd.run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		app.Close()
		os.Exit(1)
	}
}

type command struct {
	app    *client.App
	logger *zerolog.Logger
	yes    bool
}

func (c *command) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	switch args[0] {
	case "login":
		return c.login(ctx)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami()
	case "open":
		if len(args) < 2 {
			return errors.New("open requires a path")
		}
		return c.open(ctx, args[1])
	case "albums":
		return c.albums(ctx)
	case "new-album":
		if len(args) < 2 {
			return errors.New("new-album requires a title")
		}
		return c.newAlbum(ctx, strings.Join(args[1:], " "))
	}
	return fmt.Errorf("unknown command '%s'", args[0])
}

func promptCredentials() (domain.Credentials, error) {
	userPrompt := promptui.Prompt{
		Label: "Username",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("username is required")
			}
			return nil
		},
	}
	username, err := userPrompt.Run()
	if err != nil {
		return domain.Credentials{}, err
	}
	passPrompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
	}
	password, err := passPrompt.Run()
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Username: strings.TrimSpace(username), Password: password}, nil
}

func (c *command) login(ctx context.Context) error {
	creds, err := promptCredentials()
	if err != nil {
		return err
	}
	sess, err := c.app.Store.SignIn(ctx, creds)
	if err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) && !authErr.Unauthorized() {
			return fmt.Errorf("sign in rejected: %s", authErr.Detail)
		}
		return err
	}
	if !sess.Authenticated() {
		return errors.New("session was replaced while signing in")
	}
	fmt.Printf("Signed in as %s\n", sess.User.DisplayName())
	return nil
}

func (c *command) logout(ctx context.Context) error {
	if !c.app.Store.Authenticated() {
		fmt.Println("Not signed in")
		return c.app.Store.SignOut(ctx)
	}
	if !c.yes {
		confirm := promptui.Prompt{
			Label:     "Sign out",
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				return nil
			}
			return err
		}
	}
	if err := c.app.Store.SignOut(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func (c *command) whoami() error {
	sess := c.app.Store.Snapshot()
	if !sess.Authenticated() {
		fmt.Println(sess.State())
		return nil
	}
	u := sess.User
	fmt.Printf("%s (id %d, %s)\n", u.DisplayName(), u.ID, u.Email)
	return nil
}

// open navigates to path. When the guard sends the user to the login route,
// it signs in interactively and resumes at the originally requested path.
func (c *command) open(ctx context.Context, path string) error {
	loc, err := c.app.Router.Navigate(path)
	if err != nil {
		return err
	}
	if loc.Route.Pattern == guard.LoginPath && loc.RedirectedFrom != "" {
		fmt.Printf("%s requires sign in\n", loc.RedirectedFrom)
		if err := c.login(ctx); err != nil {
			return err
		}
		loc, err = c.app.Router.Navigate(c.app.Router.LoginReturn())
		if err != nil {
			return err
		}
	}
	fmt.Printf("%s %s", loc.Route.Name, loc.Path)
	for k, v := range loc.Params {
		fmt.Printf(" %s=%s", k, v)
	}
	fmt.Println()
	return nil
}

func (c *command) albums(ctx context.Context) error {
	albums, err := c.app.API.ListAlbums(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tPHOTOS\tPUBLIC")
	for _, a := range albums {
		date := "-"
		if !a.Date.IsZero() {
			date = a.Date.Format("2.1.2006")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%t\n", a.ID, a.Title, date, a.PhotoCount, a.Public)
	}
	return w.Flush()
}

func (c *command) newAlbum(ctx context.Context, title string) error {
	if err := c.open(ctx, "/new-album"); err != nil {
		return err
	}
	if !c.app.Store.Authenticated() {
		return errors.New("not signed in")
	}
	a, err := c.app.API.CreateAlbum(ctx, api.AlbumInput{Title: title, Public: true})
	if err != nil {
		return err
	}
	fmt.Printf("Created album %d %s\n", a.ID, a.Title)
	return nil
}
