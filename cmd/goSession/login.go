package main

import (
	"errors"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

type loginConfig struct {
	email    string
	password string
}

func newLoginCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")

	return cmd
}

func runLogin(cmd *cobra.Command, cfg *loginConfig) error {
	client, closeFn, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if client.IsAuthenticated() {
		cmd.Printf("Already signed in as %s\n", client.User().Email)
		return nil
	}

	res, err := client.Login(contextOf(cmd), cfg.email, cfg.password)
	if res == nil {
		return userError(err)
	}
	cmd.Printf("Signed in as %s (%s)\n", res.User.Name, res.User.Email)
	if errors.Is(err, goSession.ErrStorageWrite) {
		cmd.PrintErrln(goSession.DisplayMessage(err))
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, closeFn, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if !client.IsAuthenticated() {
				cmd.Println("Not signed in")
				return nil
			}
			if err := client.Logout(contextOf(cmd)); err != nil {
				return userError(err)
			}
			cmd.Println("Signed out")
			return nil
		},
	}
}
