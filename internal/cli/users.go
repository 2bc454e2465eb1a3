package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
	"github.com/sakif/needley/internal/service"
)

type userView struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Nickname  string     `json:"nickname"`
	Avatar    string     `json:"avatar,omitempty"`
	GitHubID  *int64     `json:"github_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func newUserView(u *model.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Nickname:  u.Profile.Nickname,
		Avatar:    u.Profile.Avatar,
		GitHubID:  u.GitHubID,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// pageView is the JSON shape of one listed page. EndCursor feeds --after.
type pageView[T any] struct {
	Items       []T    `json:"items"`
	TotalCount  int    `json:"total_count"`
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor,omitempty"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUsersListCommand(rootOpts))
	cmd.AddCommand(newUsersGetCommand(rootOpts))
	cmd.AddCommand(newUsersCreateCommand(rootOpts))
	cmd.AddCommand(newUsersDeleteCommand(rootOpts))
	return cmd
}

type usersListOptions struct {
	*RootOptions
	Username         string
	UsernameContains string
	Nickname         string
	NicknameContains string
	First            int
	After            string
}

func newUsersListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &usersListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users in registration order",
		Long: `List users in registration order, one page at a time.

Examples:
  needleyctl users list --nickname-contains tom
  needleyctl users list --first 50 --after <end cursor of previous page>
  needleyctl users list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "exact username")
	cmd.Flags().StringVar(&opts.UsernameContains, "username-contains", "", "case-insensitive username substring")
	cmd.Flags().StringVar(&opts.Nickname, "nickname", "", "exact nickname")
	cmd.Flags().StringVar(&opts.NicknameContains, "nickname-contains", "", "case-insensitive nickname substring")
	cmd.Flags().IntVar(&opts.First, "first", repository.DefaultListLimit, "page size")
	cmd.Flags().StringVar(&opts.After, "after", "", "list users after this ID")

	return cmd
}

func runUsersList(cmd *cobra.Command, opts *usersListOptions) error {
	a, err := openApp(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var filter repository.Filter
	if opts.Username != "" {
		filter = filter.Where("username", repository.OpExact, opts.Username)
	}
	if opts.UsernameContains != "" {
		filter = filter.Where("username", repository.OpIContains, opts.UsernameContains)
	}
	if opts.Nickname != "" {
		filter = filter.Where("nickname", repository.OpExact, opts.Nickname)
	}
	if opts.NicknameContains != "" {
		filter = filter.Where("nickname", repository.OpIContains, opts.NicknameContains)
	}

	page, err := a.accounts.List(cmd.Context(), repository.ListOptions{
		Filter: filter,
		First:  repository.PageSize(opts.First),
		After:  opts.After,
	})
	if err != nil {
		return serviceError("failed to list users", err)
	}

	view := pageView[userView]{
		Items:       make([]userView, 0, len(page.Items)),
		TotalCount:  page.TotalCount,
		HasNextPage: page.HasNextPage,
	}
	for i := range page.Items {
		view.Items = append(view.Items, newUserView(&page.Items[i]))
	}
	if n := len(view.Items); n > 0 {
		view.EndCursor = view.Items[n-1].ID
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(view, func(w io.Writer) {
		rows := make([]string, len(view.Items))
		for i, u := range view.Items {
			rows[i] = fmt.Sprintf("%s\t%s\t%s\t%s\t%s", u.ID, u.Username, u.Nickname, formatTime(&u.CreatedAt), formatTime(u.LastLogin))
		}
		table(w, "ID\tUSERNAME\tNICKNAME\tCREATED\tLAST LOGIN", rows)
		fmt.Fprintf(w, "\n%d of %d users", len(view.Items), view.TotalCount)
		if view.HasNextPage {
			fmt.Fprintf(w, " (more after %s)", view.EndCursor)
		}
		fmt.Fprintln(w)
	})
}

func newUsersGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|username>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := lookupUser(cmd.Context(), a, args[0])
			if err != nil {
				return serviceError("failed to load user", err)
			}
			view := newUserView(user)

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(view, func(w io.Writer) {
				fmt.Fprintf(w, "ID:         %s\n", view.ID)
				fmt.Fprintf(w, "Username:   %s\n", view.Username)
				fmt.Fprintf(w, "Email:      %s\n", view.Email)
				fmt.Fprintf(w, "Nickname:   %s\n", view.Nickname)
				fmt.Fprintf(w, "Avatar:     %s\n", view.Avatar)
				fmt.Fprintf(w, "Created:    %s\n", formatTime(&view.CreatedAt))
				fmt.Fprintf(w, "Last login: %s\n", formatTime(view.LastLogin))
			})
		},
	}
}

// lookupUser accepts either an ID or a username.
func lookupUser(ctx context.Context, a *app, key string) (*model.User, error) {
	user, err := a.accounts.Get(ctx, key)
	if err == nil || !errors.Is(err, apperror.ErrNotFound) {
		return user, err
	}
	return a.accounts.GetByUsername(ctx, key)
}

type usersCreateOptions struct {
	*RootOptions
	Username      string
	Email         string
	Password      string
	PasswordStdin bool
	Nickname      string
	Avatar        string
}

func newUsersCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &usersCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a user",
		Long: `Register a user with the same rules as the createUser mutation.

Examples:
  needleyctl users create --username alice --email alice@example.com --nickname Alice --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "username (required)")
	_ = cmd.MarkFlagRequired("username")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&opts.Nickname, "nickname", "", "display name (required)")
	_ = cmd.MarkFlagRequired("nickname")
	cmd.Flags().StringVar(&opts.Avatar, "avatar", "", "avatar URL")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (visible in shell history; prefer --password-stdin)")
	cmd.Flags().BoolVar(&opts.PasswordStdin, "password-stdin", false, "read the password from the first line of stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func runUsersCreate(cmd *cobra.Command, opts *usersCreateOptions) error {
	password := opts.Password
	if opts.PasswordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return WrapExitError(ExitCommandError, "failed to read password", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	a, err := openApp(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.accounts.Register(cmd.Context(), service.RegisterInput{
		Username: opts.Username,
		Email:    opts.Email,
		Password: password,
		Nickname: opts.Nickname,
		Avatar:   opts.Avatar,
	})
	if err != nil {
		return serviceError("failed to create user", err)
	}
	view := newUserView(user)

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(view, func(w io.Writer) {
		fmt.Fprintf(w, "Created user %s (%s)\n", view.Username, view.ID)
	})
}

func newUsersDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user with their profile and articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.accounts.Delete(cmd.Context(), args[0]); err != nil {
				return serviceError("failed to delete user", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted user %s\n", args[0])
			})
		},
	}
}
