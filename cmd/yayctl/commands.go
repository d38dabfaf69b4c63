package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Sternrassler/yay-client/pkg/client"
	"github.com/Sternrassler/yay-client/pkg/pagination"
	"github.com/spf13/cobra"
)

// amountFlags binds --amount and --all. Neither set means the endpoint's
// own default.
type amountFlags struct {
	amount int
	all    bool
}

func (f *amountFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.amount, "amount", 0, "number of records to fetch (0 = endpoint default)")
	cmd.Flags().BoolVar(&f.all, "all", false, "fetch every record")
	cmd.MarkFlagsMutuallyExclusive("amount", "all")
}

func (f *amountFlags) value() pagination.Amount {
	switch {
	case f.all:
		return pagination.Unbounded()
	case f.amount > 0:
		return pagination.Exactly(f.amount)
	default:
		return pagination.Amount{}
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Long: `Log in with email and password.

Credentials default to auth.email and auth.password from the configuration
(YAY_AUTH__EMAIL, YAY_AUTH__PASSWORD). With Redis configured the session is
saved and later commands for the same account resume it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = a.cfg.Auth.Email
			}
			if password == "" {
				password = a.cfg.Auth.Password
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			sess, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return a.print(map[string]any{
				"user_id":   sess.Identity,
				"persisted": a.redis != nil,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.client.Logout(cmd.Context())
		},
	}
}

func newUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Show a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			user, err := a.client.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(user)
		},
	}
}

// userListCmd builds the followers, followings and letters commands, which
// share their shape.
func userListCmd[T any](a *app, use, short string, get func(*client.Client, context.Context, int64, pagination.Amount) ([]T, error)) *cobra.Command {
	var af amountFlags
	cmd := &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			records, err := get(a.client, cmd.Context(), id, af.value())
			if err != nil {
				return err
			}
			return a.print(records)
		},
	}
	af.register(cmd)
	return cmd
}

func newFollowersCmd(a *app) *cobra.Command {
	return userListCmd(a, "followers", "List a user's followers (all by default)", (*client.Client).GetUserFollowers)
}

func newFollowingsCmd(a *app) *cobra.Command {
	return userListCmd(a, "followings", "List the users someone follows (all by default)", (*client.Client).GetUserFollowings)
}

func newLettersCmd(a *app) *cobra.Command {
	return userListCmd(a, "letters", "List letters written to a user (all by default)", (*client.Client).GetLetters)
}

func newTimelineCmd(a *app) *cobra.Command {
	var (
		af amountFlags
		q  client.TimelineQuery
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show the public, user, keyword or hashtag timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := a.client.GetTimeline(cmd.Context(), q, af.value())
			if err != nil {
				return err
			}
			return a.print(posts)
		},
	}
	cmd.Flags().Int64Var(&q.UserID, "user", 0, "posts by this user")
	cmd.Flags().StringVar(&q.Keyword, "keyword", "", "posts matching a keyword")
	cmd.Flags().StringVar(&q.Hashtag, "hashtag", "", "posts with a hashtag")
	cmd.MarkFlagsMutuallyExclusive("user", "keyword", "hashtag")
	af.register(cmd)
	return cmd
}

func newNotificationsCmd(a *app) *cobra.Command {
	var (
		af        amountFlags
		important bool
	)
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List activity notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			activities, err := a.client.GetNotifications(cmd.Context(), important, af.value())
			if err != nil {
				return err
			}
			return a.print(activities)
		},
	}
	cmd.Flags().BoolVar(&important, "important", true, "only important notifications")
	af.register(cmd)
	return cmd
}
