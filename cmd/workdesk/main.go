package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/lzhou/workdesk/internal/api"
	"github.com/lzhou/workdesk/internal/app"
	"github.com/lzhou/workdesk/internal/credential"
	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/session"
	"github.com/lzhou/workdesk/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	baseURL := flag.String("base-url", "", "API base URL (overrides config)")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Server.BaseURL = *baseURL
	}

	sess, err := resumeOrLogin(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.Server.BaseURL, sess)

	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache directory: %v\n", err)
		os.Exit(1)
	}
	snap, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot cache: %v\n", err)
		os.Exit(1)
	}
	defer snap.Close()

	todos := store.NewTodoListStore(client, snap)

	p := tea.NewProgram(app.New(client, sess, todos, cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// resumeOrLogin restores a saved session from the keyring, falling
// back to an interactive login when no usable token is stored.
func resumeOrLogin(cfg *model.AppConfig) (*session.Session, error) {
	token, err := credential.Get(credential.TokenKey)
	if err == nil && token != "" {
		userID, uerr := credential.Get(credential.UserIDKey)
		displayName, derr := credential.Get(credential.DisplayNameKey)
		if uerr == nil && derr == nil && userID != "" {
			return session.New(userID, displayName, token), nil
		}
	}

	return login(cfg)
}

// login prompts for credentials, exchanges them for a token, and saves
// the session to the keyring for next time.
func login(cfg *model.AppConfig) (*session.Session, error) {
	username := cfg.Server.Username
	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("username is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}),
		).Title("Sign in to Workdesk"),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("login cancelled: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := api.NewClient(cfg.Server.BaseURL, nil)
	result, err := client.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// Best effort; a failed keyring write just means logging in again
	// next launch.
	_ = credential.Set(credential.TokenKey, result.AccessToken)
	_ = credential.Set(credential.UserIDKey, result.UserID)
	_ = credential.Set(credential.DisplayNameKey, result.DisplayName)

	return session.New(result.UserID, result.DisplayName, result.AccessToken), nil
}
