package main

import (
	"errors"

	"github.com/spf13/cobra"
)

type profileConfig struct {
	name   string
	avatar string
}

func newProfileCmd() *cobra.Command {
	cfg := &profileConfig{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change the display name or avatar of the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProfile(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.name, "name", "", "new display name")
	cmd.Flags().StringVar(&cfg.avatar, "avatar", "", "new avatar URL")

	return cmd
}

func runProfile(cmd *cobra.Command, cfg *profileConfig) error {
	if cfg.name == "" && cfg.avatar == "" {
		return errors.New("nothing to change: pass --name or --avatar")
	}

	client, closeFn, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	current := client.User()
	if current == nil {
		return errors.New("not signed in")
	}

	next := *current
	if cfg.name != "" {
		next.Name = cfg.name
	}
	if cfg.avatar != "" {
		next.Avatar = cfg.avatar
	}
	if err := client.UpdateUser(contextOf(cmd), next); err != nil {
		return userError(err)
	}

	cmd.Printf("Profile updated: %s\n", next.Name)
	return nil
}
