package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/sigbridge/internal/channel"
	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/modules/channel/signal"
	"github.com/flemzord/sigbridge/pkg/message"
)

func sendCmd(g *globalFlags) *cobra.Command {
	var (
		userID      int64
		to          string
		channelName string
		params      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send a notification to a linked user or a number",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := message.OutboundMessage{
				Channel:   channelName,
				UserID:    userID,
				Recipient: to,
				Text:      strings.Join(args, " "),
			}
			if !msg.IsAddressed() {
				return errors.New("either --user or --to is required")
			}
			if len(params) > 0 {
				msg.Params = make(map[string]any, len(params))
				for k, v := range params {
					msg.Params[k] = v
				}
			}

			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := dispatch(cmd.Context(), s, msg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "Platform user id with a linked number")
	cmd.Flags().StringVar(&to, "to", "", "Recipient number, overridden by --user")
	cmd.Flags().StringVar(&channelName, "channel", signal.ChannelName, "Dispatcher channel")
	cmd.Flags().StringToStringVar(&params, "param", nil, "Extra API parameters (key=value)")
	return cmd
}

func dispatch(ctx context.Context, s *session, msg message.OutboundMessage) error {
	d, ok := core.GetService[*channel.Dispatcher](s.rt.App.Context(), channel.ServiceDispatcher)
	if !ok {
		return errors.New("no channel dispatcher registered")
	}
	return d.Send(ctx, msg)
}
