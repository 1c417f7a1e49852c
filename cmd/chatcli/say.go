package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"parentdoctor/backend/internal/chat"
)

func newSayCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "say <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := sess.engine.HandleMessage(cmd.Context(), opts.familyID, strings.Join(args, " "))
			if errors.Is(err, chat.ErrInvalidInput) {
				return errors.New("message and --family must not be blank")
			}
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newProfileCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the stored child profile for a family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			view, err := sess.engine.Profile(cmd.Context(), opts.familyID)
			if err != nil {
				return err
			}
			renderProfile(cmd.OutOrStdout(), view, sess.engine.Today())
			return nil
		},
	}
}
