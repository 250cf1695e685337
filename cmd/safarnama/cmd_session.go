package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/injector"
	"github.com/safarnama/safarnama/internal/session"
)

var (
	loginUsername string
	loginPassword string
)

// loginCmd authenticates against the backend and caches the session
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the blog backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		user, err := app.API.Auth.Login(cmd.Context(), loginUsername, loginPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.Username)
		return nil
	},
}

// logoutCmd ends the backend session and clears the cached one
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the cached session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		sub := reportSessionClears(app, cmd.OutOrStdout())
		defer app.Events.Unsubscribe(sub)

		if err = app.API.Auth.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

// whoamiCmd runs the auth gate against the cached session
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the cached user after verifying it with the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		sub := reportSessionClears(app, cmd.OutOrStdout())
		defer app.Events.Unsubscribe(sub)

		s, err := app.Gate.RequireSession(cmd.Context())
		if err != nil {
			if redirect, ok := session.AsRedirect(err); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "not logged in, redirect to %s\n", redirect.Location)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (since %s)\n", s.User.Username, s.User.Email, s.StoredAt.Format("2006-01-02 15:04"))
		return nil
	},
}

// reportSessionClears prints every clear of the cached session to out.
func reportSessionClears(app *injector.App, out io.Writer) bus.Subscription {
	sub, err := app.Events.SubscribeTopic(bus.TopicSession, bus.TypeSessionCleared, func(e bus.Event) error {
		cleared, _ := e.Data().(bus.SessionCleared)
		fmt.Fprintf(out, "session cleared: %s\n", cleared.Reason)
		return nil
	})
	if err != nil {
		app.Logger.Warn("Cannot watch session changes", log.Error(err))
	}
	return sub
}

var errMissingCredentials = errors.New("username and password are required")

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	loginCmd.PreRunE = func(*cobra.Command, []string) error {
		if loginUsername == "" || loginPassword == "" {
			return errMissingCredentials
		}
		return nil
	}
}
