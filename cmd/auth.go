package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges credentials for an access token and persists it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: auth manager not initialized", shared.ErrServiceUnavailable)
	}

	email := cmd.String("email")
	r.logger.Info("logging in", "email", email)

	if err := r.auth.Login(ctx, email, cmd.String("password")); err != nil {
		return err
	}

	session := r.auth.Session()
	return r.writePlain("✓ Logged in as %s\n", session.User.Username)
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: auth manager not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.auth.Register(ctx, cmd.String("email"), cmd.String("username"), cmd.String("password"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Registered %s (%s)\n", user.Username, user.Email)
	return r.writePlain("Run 'sonance auth login --email %s' to sign in\n", user.Email)
}

// AuthLogout ends the session on the server and forgets the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: auth manager not initialized", shared.ErrServiceUnavailable)
	}

	// Restore first so the server-side logout carries the bearer token.
	if err := r.auth.Restore(ctx); err != nil {
		r.logger.Debug("no session to restore before logout", "error", err)
	}
	if err := r.auth.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the signed-in user and when the access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: auth manager not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.auth.Restore(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return r.writePlain("Authentication: ✗ Not signed in\n")
		}
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	session := r.auth.Session()
	r.writePlain("Authentication: ✓ Signed in\n")
	r.writePlain("User: %s <%s>\n", session.User.Username, session.User.Email)
	if exp, ok := r.auth.ExpiresAt(); ok {
		r.writePlain("Token expires: %s (%s)\n", formatter.Ago(exp), exp.Local().Format("2006-01-02 15:04:05"))
	} else {
		r.writePlain("Token expires: unknown\n")
	}
	return nil
}
