package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parley-app/parley/internal/model/conversation"
)

func newSignupCmd(a *app) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and remember its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			token, err := a.client.Signup(cmd.Context(), username, email, pw)
			if err != nil {
				return err
			}
			return a.remember(token, "Account created")
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			token, err := a.client.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			return a.remember(token, "Logged in")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newForgotPasswordCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := a.client.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, message)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the token from a reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			message, err := a.client.ResetPassword(cmd.Context(), token, pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, message)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token from the reset link")
	cmd.Flags().StringVar(&password, "password", "", "new password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *app) remember(token conversation.Credential, message string) error {
	if err := a.store.Save(token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, message)
	return nil
}

func (a *app) passwordOrPrompt(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(a.out, "Password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}
