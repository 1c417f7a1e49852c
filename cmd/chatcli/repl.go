package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"parentdoctor/backend/internal/chat"
)

const replHelp = `commands: /profile shows the stored child, /clear forgets this conversation, /quit exits`

func newReplCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat interactively, one line per message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, noteStyle.Render(fmt.Sprintf("family %s, backend %s. %s", opts.familyID, sess.stores.Backend, replHelp)))

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, promptStyle.Render("you> "))
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				case "/help":
					fmt.Fprintln(out, noteStyle.Render(replHelp))
					continue
				case "/clear":
					if err := sess.engine.ClearConversation(opts.familyID); err != nil {
						return err
					}
					fmt.Fprintln(out, noteStyle.Render("conversation cleared"))
					continue
				case "/profile":
					view, err := sess.engine.Profile(cmd.Context(), opts.familyID)
					if err != nil {
						fmt.Fprintln(out, noteStyle.Render("profile unavailable: "+err.Error()))
						continue
					}
					renderProfile(out, view, sess.engine.Today())
					continue
				}

				result, err := sess.engine.HandleMessage(cmd.Context(), opts.familyID, line)
				if errors.Is(err, chat.ErrInvalidInput) {
					return errors.New("--family must not be blank")
				}
				if err != nil {
					return err
				}
				renderResult(out, result)
			}
		},
	}
}
