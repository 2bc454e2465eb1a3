package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/repository"
)

type articleView struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func newArticleView(a *model.Article) articleView {
	return articleView{
		ID:        a.ID,
		AuthorID:  a.AuthorID,
		Title:     a.Title,
		Slug:      a.Slug,
		Content:   a.Content,
		CreatedAt: a.CreatedAt,
	}
}

func NewArticlesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Manage articles",
	}
	cmd.AddCommand(newArticlesListCommand(rootOpts))
	cmd.AddCommand(newArticlesDeleteCommand(rootOpts))
	return cmd
}

type articlesListOptions struct {
	*RootOptions
	Author        string
	TitleContains string
	CreatedBefore string
	CreatedAfter  string
	First         int
	After         string
}

func newArticlesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &articlesListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles in posting order",
		Long: `List articles in posting order, one page at a time.

Examples:
  needleyctl articles list --author <user id>
  needleyctl articles list --title-contains go --format json
  needleyctl articles list --created-after 2024-01-01T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArticlesList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "", "author user ID")
	cmd.Flags().StringVar(&opts.TitleContains, "title-contains", "", "case-insensitive title substring")
	cmd.Flags().StringVar(&opts.CreatedBefore, "created-before", "", "only articles created before this RFC 3339 time")
	cmd.Flags().StringVar(&opts.CreatedAfter, "created-after", "", "only articles created after this RFC 3339 time")
	cmd.Flags().IntVar(&opts.First, "first", repository.DefaultListLimit, "page size")
	cmd.Flags().StringVar(&opts.After, "after", "", "list articles after this ID")

	return cmd
}

func runArticlesList(cmd *cobra.Command, opts *articlesListOptions) error {
	a, err := openApp(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var filter repository.Filter
	if opts.Author != "" {
		filter = filter.Where("author", repository.OpExact, opts.Author)
	}
	if opts.TitleContains != "" {
		filter = filter.Where("title", repository.OpIContains, opts.TitleContains)
	}
	for _, bound := range []struct {
		flag, value string
		op          repository.Operator
	}{
		{"created-before", opts.CreatedBefore, repository.OpLT},
		{"created-after", opts.CreatedAfter, repository.OpGT},
	} {
		if bound.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.value)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("--%s: %q is not an RFC 3339 time", bound.flag, bound.value))
		}
		filter = filter.Where("createdAt", bound.op, t)
	}

	page, err := a.articles.List(cmd.Context(), repository.ListOptions{
		Filter: filter,
		First:  repository.PageSize(opts.First),
		After:  opts.After,
	})
	if err != nil {
		return serviceError("failed to list articles", err)
	}

	view := pageView[articleView]{
		Items:       make([]articleView, 0, len(page.Items)),
		TotalCount:  page.TotalCount,
		HasNextPage: page.HasNextPage,
	}
	for i := range page.Items {
		view.Items = append(view.Items, newArticleView(&page.Items[i]))
	}
	if n := len(view.Items); n > 0 {
		view.EndCursor = view.Items[n-1].ID
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(view, func(w io.Writer) {
		rows := make([]string, len(view.Items))
		for i, art := range view.Items {
			rows[i] = fmt.Sprintf("%s\t%s\t%s\t%s", art.ID, art.AuthorID, art.Title, formatTime(&art.CreatedAt))
		}
		table(w, "ID\tAUTHOR\tTITLE\tCREATED", rows)
		fmt.Fprintf(w, "\n%d of %d articles", len(view.Items), view.TotalCount)
		if view.HasNextPage {
			fmt.Fprintf(w, " (more after %s)", view.EndCursor)
		}
		fmt.Fprintln(w)
	})
}

func newArticlesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.articles.Delete(cmd.Context(), args[0]); err != nil {
				return serviceError("failed to delete article", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted article %s\n", args[0])
			})
		},
	}
}
