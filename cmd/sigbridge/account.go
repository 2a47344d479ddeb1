package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flemzord/sigbridge/modules/channel/signal"
)

// captchaURL is where operators solve the registration captcha.
const captchaURL = "https://signalcaptchas.org/registration/generate.html"

func accountCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the Signal bot account",
	}
	cmd.AddCommand(
		accountSetupCmd(g),
		accountVerifyCmd(g),
		accountStatusCmd(g),
		accountSetCmd(g),
		accountDeleteCmd(g),
	)
	return cmd
}

func accountSetupCmd(g *globalFlags) *cobra.Command {
	var captcha, token string
	cmd := &cobra.Command{
		Use:   "setup [number]",
		Short: "Register and verify the bot number",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, m, out := cmd.Context(), s.manager(), cmd.OutOrStdout()

			var number string
			if len(args) == 1 {
				number = args[0]
			}
			number, err = valueOr(number, signal.T(s.lang, "botaccount", nil), signal.T(s.lang, "botaccount_help", nil), signal.ValidateNumber)
			if err != nil {
				return err
			}

			cfg, err := m.Load(ctx)
			if err != nil {
				return err
			}
			res, err := m.OnConfigChange(ctx, cfg, signal.KeyBotAccount, number)
			if err != nil {
				return err
			}
			printNotice(out, s.lang, res.Notice)
			if res.Redirect == nil {
				return nil
			}

			fmt.Fprintf(out, "%s\n  %s\n", signal.T(s.lang, "missingcaptcha", nil), captchaURL)
			captcha, err = valueOr(captcha, signal.T(s.lang, "entercaptcha", nil), signal.T(s.lang, "captcha", nil), notEmpty)
			if err != nil {
				return err
			}
			cfg, err = m.CreateAccount(ctx, res.Config, res.Redirect.Account, captcha)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, signal.T(s.lang, "accountcreated", nil))

			token, err = valueOr(token, signal.T(s.lang, "verifyaccount", nil), signal.T(s.lang, "verificationtoken", nil), notEmpty)
			if err != nil {
				return err
			}
			if _, err := m.VerifyAccount(ctx, cfg, "", token); err != nil {
				return err
			}
			fmt.Fprintln(out, signal.T(s.lang, "accountverified", nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&captcha, "captcha", "", "Captcha token (signalcaptcha://...)")
	cmd.Flags().StringVar(&token, "token", "", "Verification token received by SMS")
	return cmd
}

func accountVerifyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [token]",
		Short: "Submit a verification token, or refresh the verified flag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, m, out := cmd.Context(), s.manager(), cmd.OutOrStdout()

			cfg, err := m.Load(ctx)
			if err != nil {
				return err
			}
			if cfg.Account == "" {
				return signal.ErrNotConfigured
			}

			if len(args) == 1 {
				if _, err := m.VerifyAccount(ctx, cfg, "", args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out, signal.T(s.lang, "accountverified", nil))
				return nil
			}

			verified, _, err := m.IsAccountVerified(ctx, cfg, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s verified: %t\n", cfg.Account, verified)
			return nil
		},
	}
}

func accountStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored bot settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg, err := s.manager().Load(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printStatus(w io.Writer, cfg signal.BotConfig) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "state\t%s\n", signal.StateOf(cfg, ""))
	fmt.Fprintf(tw, "api url\t%s\n", cfg.APIURL)
	fmt.Fprintf(tw, "account\t%s\n", orDash(cfg.Account))
	fmt.Fprintf(tw, "verified\t%t\n", cfg.Verified)
	fmt.Fprintf(tw, "name\t%s\n", orDash(cfg.Name))
	fmt.Fprintf(tw, "about\t%s\n", orDash(cfg.About))
	fmt.Fprintf(tw, "webhook\t%s\n", orDash(cfg.Webhook))
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func accountSetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <botname|botabout|webhook> [value]",
		Short: "Change a bot setting; an empty value clears it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, m := cmd.Context(), s.manager()

			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			cfg, err := m.Load(ctx)
			if err != nil {
				return err
			}
			res, err := m.OnConfigChange(ctx, cfg, args[0], value)
			if err != nil {
				return err
			}
			printNotice(cmd.OutOrStdout(), s.lang, res.Notice)
			return nil
		},
	}
}

func accountDeleteCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Unregister the bot account and its webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			if cfg.Account == "" {
				return signal.ErrNotConfigured
			}
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete %s?", cfg.Account), signal.T(s.lang, "confirm", nil), signal.T(s.lang, "cancel", nil))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			res, err := m.OnConfigChange(ctx, cfg, signal.KeyBotAccount, "")
			if err != nil {
				return err
			}
			printNotice(cmd.OutOrStdout(), s.lang, res.Notice)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func printNotice(w io.Writer, lang string, n *signal.Notice) {
	if n == nil {
		return
	}
	fmt.Fprintln(w, n.Text(lang))
}
