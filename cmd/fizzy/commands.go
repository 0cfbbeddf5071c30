package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/fizzy-go/pkg/auth"
	"github.com/Sternrassler/fizzy-go/pkg/fizzy"
)

func newBoardsCmd(a *app) *cobra.Command {
	boards := &cobra.Command{Use: "boards", Short: "Work with boards"}
	boards.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			var list []fizzy.Board
			for board, err := range c.Boards.ListAll(commandContext(cmd)) {
				if err != nil {
					return err
				}
				list = append(list, board)
			}

			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "CARDS")
			for _, b := range list {
				t.row(b.ID, b.Name, b.CardsCount)
			}
			return t.flush()
		},
	})
	return boards
}

func newCardsCmd(a *app) *cobra.Command {
	cards := &cobra.Command{Use: "cards", Short: "Work with cards"}

	var (
		filter fizzy.CardFilter
		all    bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			var found []fizzy.Card
			if all {
				for card, err := range c.Cards.ListAll(ctx, filter) {
					if err != nil {
						return err
					}
					found = append(found, card)
				}
			} else if found, err = c.Cards.List(ctx, filter); err != nil {
				return err
			}

			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), found)
			}
			t := newTable(cmd.OutOrStdout(), "NUMBER", "STATUS", "TITLE")
			for _, card := range found {
				t.row(card.Number, card.Status, card.Title)
			}
			return t.flush()
		},
	}
	list.Flags().StringVar(&filter.BoardID, "board", "", "only cards on this board")
	list.Flags().StringVar(&filter.Status, "status", "", "open, closed or deferred")
	list.Flags().BoolVar(&all, "all", false, "follow pagination to the last page")

	get := &cobra.Command{
		Use:   "get NUMBER...",
		Short: "Show one or more cards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := cardNumbers(args)
			if err != nil {
				return err
			}
			c, err := a.api()
			if err != nil {
				return err
			}

			found, fetchErr := c.Cards.GetMany(commandContext(cmd), numbers)
			if a.asJSON {
				if err := printJSON(cmd.OutOrStdout(), found); err != nil {
					return err
				}
				return fetchErr
			}

			out := cmd.OutOrStdout()
			for _, card := range found {
				if card == nil {
					continue
				}
				fmt.Fprintf(out, "#%d %s [%s]\n", card.Number, card.Title, card.Status)
				if card.Column != nil {
					fmt.Fprintf(out, "  column: %s\n", card.Column.Name)
				}
				for _, tag := range card.Tags {
					fmt.Fprintf(out, "  tag: %s\n", tag.Name)
				}
				for _, step := range card.Steps {
					mark := " "
					if step.Completed {
						mark = "x"
					}
					fmt.Fprintf(out, "  [%s] %s\n", mark, step.Content)
				}
			}
			return fetchErr
		},
	}

	cards.AddCommand(list, get)
	return cards
}

func newCommentsCmd(a *app) *cobra.Command {
	comments := &cobra.Command{Use: "comments", Short: "Work with comments"}
	comments.AddCommand(&cobra.Command{
		Use:   "list CARD...",
		Short: "List the comments of one or more cards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := cardNumbers(args)
			if err != nil {
				return err
			}
			c, err := a.api()
			if err != nil {
				return err
			}

			byCard, fetchErr := c.Comments.ListAllForCards(commandContext(cmd), numbers)
			if a.asJSON {
				if err := printJSON(cmd.OutOrStdout(), byCard); err != nil {
					return err
				}
				return fetchErr
			}

			out := cmd.OutOrStdout()
			for _, n := range numbers {
				list, ok := byCard[n]
				if !ok {
					continue
				}
				fmt.Fprintf(out, "#%d (%d comments)\n", n, len(list))
				for _, comment := range list {
					author, text := "", ""
					if comment.Creator != nil {
						author = comment.Creator.Name
					}
					if comment.Body != nil {
						text = strings.TrimSpace(comment.Body.PlainText)
					}
					fmt.Fprintf(out, "  %s: %s\n", author, text)
				}
			}
			return fetchErr
		},
	})
	return comments
}

func newNotificationsCmd(a *app) *cobra.Command {
	notifications := &cobra.Command{Use: "notifications", Short: "Work with notifications"}

	var unread bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			var read *bool
			if unread {
				read = new(bool)
			}

			var found []fizzy.Notification
			for n, err := range c.Notifications.ListAll(commandContext(cmd), read) {
				if err != nil {
					return err
				}
				found = append(found, n)
			}

			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), found)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "KIND", "READ", "CARD")
			for _, n := range found {
				t.row(n.ID, n.Kind, n.Read, n.CardTitle)
			}
			return t.flush()
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	notifications.AddCommand(list)
	return notifications
}

func newUploadCmd(a *app) *cobra.Command {
	var contentType string
	upload := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a file and print its attachment tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			up, err := c.Uploads.UploadFile(commandContext(cmd), args[0], contentType)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), up)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed id: %s\n%s\n", up.SignedID, up.AttachmentTag())
			return nil
		},
	}
	upload.Flags().StringVar(&contentType, "content-type", "", "content type (guessed from the extension by default)")
	return upload
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL",
		Short: "Sign in with a magic link code and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			baseURL := a.v.GetString("base_url")

			svc, err := auth.New(baseURL)
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.RequestMagicLink(ctx, args[0]); err != nil {
				return fmt.Errorf("request magic link: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Code sent to %s. Enter code: ", args[0])

			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return err
				}
				return errors.New("no code entered")
			}
			token, err := svc.SubmitMagicCode(ctx, strings.TrimSpace(scanner.Text()))
			if err != nil {
				return fmt.Errorf("submit code: %w", err)
			}

			settings := map[string]any{"session_token": token, "token": "", "base_url": baseURL}
			a.v.Set("session_token", token)
			a.v.Set("token", "")
			if a.v.GetString("account") == "" {
				if slug := a.soleAccount(cmd); slug != "" {
					settings["account"] = slug
				}
			}

			path, err := a.saveSettings(settings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSigned in. Session saved to %s\n", path)
			return nil
		},
	}
}

// soleAccount returns the slug of the identity's only account, or "".
func (a *app) soleAccount(cmd *cobra.Command) string {
	cfg, err := a.clientConfig()
	if err != nil {
		return ""
	}
	c, err := fizzy.NewClient(cfg)
	if err != nil {
		return ""
	}
	defer c.Close()

	identity, err := c.Identity.Get(commandContext(cmd))
	if err != nil || len(identity.Accounts) != 1 {
		return ""
	}
	return identity.Accounts[0].Slug()
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the accounts of the current credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.clientConfig()
			if err != nil {
				return err
			}
			c, err := fizzy.NewClient(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			identity, err := c.Identity.Get(commandContext(cmd))
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), identity)
			}
			t := newTable(cmd.OutOrStdout(), "ACCOUNT", "SLUG", "USER", "ROLE")
			for _, acct := range identity.Accounts {
				user, role := "", ""
				if acct.User != nil {
					user, role = acct.User.Name, acct.User.Role
				}
				t.row(acct.Name, acct.Slug(), user, role)
			}
			return t.flush()
		},
	}
}

func cardNumbers(args []string) ([]int, error) {
	numbers := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid card number %q", arg)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
