package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/session"
	"github.com/david-andreasson/novareport/internal/state"
)

type loginOpts struct {
	email    string
	password string
}

func newLoginCmd(g *globalFlags) *cobra.Command {
	var opts loginOpts

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Signs in with email and password. The password is read from --password,
then NOVAREPORT_PASSWORD, then one line of standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			if opts.password == "" {
				opts.password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return runLogin(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runLogin(ctx context.Context, a *app, opts loginOpts) error {
	tok, err := a.client.Login(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}
	return a.saveSession(opts.email, tok.AccessToken, "Inloggad som %s\n")
}

type registerOpts struct {
	req api.RegisterRequest
}

func newRegisterCmd(g *globalFlags) *cobra.Command {
	var opts registerOpts

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			if opts.req.Password == "" {
				opts.req.Password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return runRegister(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.req.Email, "email", "", "Account email (required)")
	f.StringVar(&opts.req.Password, "password", "", "Account password")
	f.StringVar(&opts.req.FirstName, "first-name", "", "First name (required)")
	f.StringVar(&opts.req.LastName, "last-name", "", "Last name (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")

	return cmd
}

func runRegister(ctx context.Context, a *app, opts registerOpts) error {
	if len(opts.req.Password) < 8 {
		return errors.New("lösenordet måste vara minst 8 tecken")
	}
	tok, err := a.client.Register(ctx, opts.req)
	if err != nil {
		return err
	}
	return a.saveSession(opts.req.Email, tok.AccessToken, "Konto skapat. Inloggad som %s\n")
}

func (a *app) saveSession(email, token, greeting string) error {
	sess := &session.Session{AccessToken: token, Email: email, SavedAt: a.now().UTC()}
	if err := session.Save(a.cfg.Session.Path, sess); err != nil {
		return err
	}

	var role string
	if claims, err := session.ParseClaims(token); err == nil {
		role = claims.Role
		email = firstNonEmpty(claims.Email(), email)
	}
	a.store.Dispatch(state.LoggedIn{Token: token, Email: email, Role: role})
	a.lggr.Debugw("session saved", "path", a.cfg.Session.Path)

	fmt.Fprintf(a.out, greeting, email)
	return nil
}

func readPassword(r io.Reader) (string, error) {
	if pw := os.Getenv("NOVAREPORT_PASSWORD"); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required (--password, NOVAREPORT_PASSWORD or stdin)")
	}
	return pw, nil
}

func newLogoutCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			if err := session.Clear(a.cfg.Session.Path); err != nil {
				return err
			}
			a.store.Dispatch(state.LoggedOut{})
			fmt.Fprintln(a.out, "Utloggad")
			return nil
		},
	}
}

func newWhoamiCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account from the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			return runWhoami(a)
		},
	}
}

func runWhoami(a *app) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	auth := a.store.Snapshot().Auth
	if a.format == "json" {
		return a.printJSON(auth)
	}
	fmt.Fprintf(a.out, "E-post:  %s\n", firstNonEmpty(auth.Email, "-"))
	fmt.Fprintf(a.out, "Roll:    %s\n", firstNonEmpty(auth.Role, "-"))
	fmt.Fprintf(a.out, "Går ut:  %s\n", formatTime(auth.ExpiresAt))
	return nil
}
