package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/urfave/cli/v3"
)

// credentials collects credentials from flags, prompting for whatever is missing.
func (r *Runner) credentials(ctx context.Context, cmd *cli.Command, withName bool) (Credentials, error) {
	creds := Credentials{
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	}
	if withName {
		creds.FullName = cmd.String("name")
	}
	if creds.complete(withName) {
		return creds, nil
	}
	return r.prompter.Credentials(ctx, creds, withName)
}

func displayName(u *models.User) string {
	if u.FullName != "" {
		return fmt.Sprintf("%s <%s>", u.FullName, u.Email)
	}
	return u.Email
}

// AuthLogin signs in and persists the session token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.start(ctx); err != nil {
		return err
	}

	creds, err := r.credentials(ctx, cmd, false)
	if err != nil {
		return err
	}

	if err := r.session.Login(ctx, creds.Email, creds.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	user, _ := r.session.CurrentUser()
	return r.writePlain("✓ Signed in as %s\n", displayName(user))
}

// AuthRegister creates an account and signs in with it.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.start(ctx); err != nil {
		return err
	}

	creds, err := r.credentials(ctx, cmd, true)
	if err != nil {
		return err
	}

	if err := r.session.Register(ctx, creds.Email, creds.Password, creds.FullName); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	user, _ := r.session.CurrentUser()
	return r.writePlain("✓ Account created, signed in as %s\n", displayName(user))
}

// AuthLogout forgets the session token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.start(ctx); err != nil {
		return err
	}

	r.session.Logout(ctx)
	return r.writePlain("✓ Signed out\n")
}

// AuthWhoami prints the signed-in user.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.start(ctx); err != nil {
		return err
	}

	snap := r.session.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Phase string       `json:"phase"`
			User  *models.User `json:"user,omitempty"`
		}{Phase: string(snap.Phase), User: snap.User}, true)
	}

	if !snap.Authenticated() {
		return r.writePlain("Not signed in. Run `coursex auth login`.\n")
	}
	return r.writePlain("Signed in as %s (id %d)\n", displayName(snap.User), snap.User.ID)
}

// AuthRefresh re-validates the stored token; an invalid token signs the session out.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.start(ctx); err != nil {
		return err
	}

	if !r.session.Snapshot().Authenticated() {
		return r.writePlain("Not signed in. Run `coursex auth login`.\n")
	}

	if err := r.session.Refresh(ctx); err != nil {
		return fmt.Errorf("session refresh failed, signed out: %w", err)
	}

	user, _ := r.session.CurrentUser()
	return r.writePlain("✓ Session valid for %s\n", displayName(user))
}

// AuthOrigins lists the services that have a stored session token.
func (r *Runner) AuthOrigins(ctx context.Context, cmd *cli.Command) error {
	if err := r.start(ctx); err != nil {
		return err
	}
	if r.tokens == nil {
		return r.writePlain("Tokens are kept in memory for this session only.\n")
	}

	origins, err := r.tokens.Origins()
	if err != nil {
		return err
	}
	if len(origins) == 0 {
		return r.writePlain("No stored sessions.\n")
	}

	for _, origin := range origins {
		marker := " "
		if origin == r.tokens.Origin() {
			marker = "*"
		}
		r.writePlain("%s %s\n", marker, origin)
	}
	return nil
}
