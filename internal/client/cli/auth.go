package cli

import (
	"context"
	"fmt"
	"os"
)

// Login prompts for credentials and authenticates against the backend. On
// success the children roster is loaded for later consent checks.
func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.Login(ctx, username, string(password)); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	a.userName = username
	if err := a.loadRoster(ctx); err != nil {
		a.log.Warn(ctx, "could not load children roster", "error", err)
	}

	fmt.Println("Logged in as", username)
	return nil
}

// Register prompts for credentials and creates an account.
func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Choose a username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.Register(ctx, username, string(password)); err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	a.userName = username
	fmt.Println("Registered as", username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.userName = ""
	a.roster = nil
	fmt.Println("Logged out")
	return nil
}

func (a *App) loadRoster(ctx context.Context) error {
	roster, err := a.api.Children(ctx)
	if err != nil {
		return err
	}
	a.roster = roster
	return nil
}
