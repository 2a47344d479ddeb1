package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flemzord/sigbridge/modules/channel/signal"
)

func userCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage links between platform users and Signal numbers",
	}
	cmd.AddCommand(userLinkCmd(g), userUnlinkCmd(g), userStatusCmd(g))
	return cmd
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func userLinkCmd(g *globalFlags) *cobra.Command {
	var name, lang string
	cmd := &cobra.Command{
		Use:   "link <user-id> <number>",
		Short: "Send the consent prompt to a number and link it to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, m := cmd.Context(), s.manager()

			cfg, err := m.Load(ctx)
			if err != nil {
				return err
			}
			if lang == "" {
				lang = s.lang
			}
			actor := signal.Actor{UserID: id, FirstName: name, Lang: lang, SiteAdmin: true}
			if err := m.ConnectUserAccount(ctx, cfg, actor, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signal.T(s.lang, "accountcreated", nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "First name used in the consent prompt")
	cmd.Flags().StringVar(&lang, "lang", "", "Language of the consent prompt (en, de)")
	return cmd
}

func userUnlinkCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <user-id>",
		Short: "Remove the Signal number of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.manager().RemoveUserAccount(cmd.Context(), id, signal.Actor{UserID: id, SiteAdmin: true}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signal.T(s.lang, "useraccountremoved", nil))
			return nil
		},
	}
}

func userStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show the Signal number linked to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			account, err := s.manager().UserAccount(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: %s\n", id, orDash(account))
			return nil
		},
	}
}
