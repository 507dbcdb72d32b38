package main

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/coursex/internal/shared"
)

// Credentials are what the login and register forms collect.
type Credentials struct {
	Email    string
	Password string
	FullName string
}

// Prompter asks the user for input the flags did not provide.
type Prompter interface {
	Credentials(ctx context.Context, creds Credentials, withName bool) (Credentials, error)
	Confirm(ctx context.Context, title string) (bool, error)
}

// huhPrompter renders [huh] forms on the terminal.
type huhPrompter struct{}

func (huhPrompter) Credentials(ctx context.Context, creds Credentials, withName bool) (Credentials, error) {
	fields := []huh.Field{}
	if withName {
		fields = append(fields, huh.NewInput().
			Title("Full name").
			Placeholder("Ada Lovelace").
			Value(&creds.FullName).
			Validate(requireText("full name")))
	}
	fields = append(fields,
		huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&creds.Email).
			Validate(validateEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&creds.Password).
			Validate(requireText("password")),
	)

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return creds, fmt.Errorf("%w: prompt aborted", shared.ErrMissingArgument)
		}
		return creds, fmt.Errorf("failed to read credentials: %w", err)
	}
	return creds, nil
}

func (huhPrompter) Confirm(ctx context.Context, title string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return ok, nil
}

func requireText(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

// complete reports whether every required credential is present.
func (c Credentials) complete(withName bool) bool {
	if withName && strings.TrimSpace(c.FullName) == "" {
		return false
	}
	return strings.TrimSpace(c.Email) != "" && c.Password != ""
}
