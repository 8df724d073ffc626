package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/common"
)

// Register prompts for email, password and an optional full name and
// creates the account. When the backend requires email confirmation no
// session is started and the user is told to check their inbox.
func (a *App) Register(ctx context.Context, _ []string) error {
	email, err := promptLine(a.reader, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	fullName, err := promptLine(a.reader, a.out, "Full name (optional)")
	if err != nil {
		return err
	}

	if err := a.Session.SignUp(ctx, email, string(password), fullName).Err(); err != nil {
		return err
	}

	if a.isLoggedIn() {
		a.printf("Welcome, %s!\n", a.Session.Identity().DisplayName())
		a.reload(ctx)
		return nil
	}
	a.println("Account created. Check your email to confirm it, then log in.")
	return nil
}

// Login prompts for credentials and signs in. The password is wiped before
// returning.
func (a *App) Login(ctx context.Context, _ []string) error {
	email, err := promptLine(a.reader, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.Session.SignIn(ctx, email, string(password)).Err(); err != nil {
		return err
	}
	a.Log.Info(ctx, "signed in", "user", a.userID())

	if id := a.Session.Identity(); id != nil {
		a.printf("Welcome, %s!\n", id.DisplayName())
	}
	a.reload(ctx)
	return nil
}

// Logout signs out and drops the conversation shown on screen.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.Session.SignOut(ctx).Err(); err != nil {
		return err
	}
	a.Conversation.ClearMessages()
	a.println("Signed out.")
	return nil
}

// ResetPassword sends a reset link to the given email, prompting when none
// is passed.
func (a *App) ResetPassword(ctx context.Context, args []string) error {
	email := strings.Join(args, " ")
	if email == "" {
		var err error
		if email, err = promptLine(a.reader, a.out, "Email"); err != nil {
			return err
		}
	}
	if err := a.Session.ResetPassword(ctx, email).Err(); err != nil {
		return err
	}
	a.println("If the address is registered, a reset link is on its way.")
	return nil
}

func (a *App) Profile(context.Context, []string) error {
	id := a.Session.Identity()
	if id == nil {
		return common.ErrNotAuthenticated
	}
	a.printf("Name:    %s\n", orDash(id.FullName))
	a.printf("Email:   %s\n", id.Email)
	a.printf("Avatar:  %s\n", orDash(id.AvatarURL))
	if !id.CreatedAt.IsZero() {
		a.printf("Joined:  %s\n", id.CreatedAt.Local().Format("2006-01-02"))
	}
	return nil
}

// Rename sets the display name. An empty name clears it.
func (a *App) Rename(ctx context.Context, args []string) error {
	name := strings.Join(args, " ")
	if err := a.Session.UpdateProfile(ctx, models.ProfilePatch{FullName: &name}).Err(); err != nil {
		return err
	}
	a.printf("Profile updated: %s\n", a.Session.Identity().DisplayName())
	return nil
}

// Avatar uploads the image at args[0] and sets it as the profile picture.
func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: avatar <image path>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read avatar: %w", err)
	}

	if err := a.Session.UploadAvatar(ctx, data, http.DetectContentType(data)).Err(); err != nil {
		return err
	}
	a.printf("Avatar uploaded: %s\n", orDash(a.Session.Identity().AvatarURL))
	return nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
