package commands

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"novelview-backend/lib/htmlutil"
	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/lib/serviceutil"
	"novelview-backend/lib/textutil"
)

var (
	searchUser      *bool
	searchBookmarks *int
	searchPage      *int
	searchNpages    *int
)

func init() {
	searchUser = searchCmd.Flags().BoolP("user", "u", false, "Treat the argument as a user id and list their novels.")
	searchBookmarks = searchCmd.Flags().IntP("bookmarks", "b", 0, "Only show novels with at least this many bookmarks.")
	searchPage = searchCmd.Flags().Int("page", 1, "The result page to start at.")
	searchNpages = searchCmd.Flags().Int("pages", 1, "How many result pages to fetch.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <word | --user <user id>>",
	Short: "Searches for novels and prints the results as a table.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := newService()

		var novels []pixiv.Novel
		var err error
		if *searchUser {
			novels, err = service.SearchUser(ctx, args[0], *searchBookmarks)
		} else {
			novels, err = service.Search(ctx, args[0], *searchBookmarks, *searchPage, *searchNpages)
		}
		if err != nil {
			serviceutil.Fatal("search failed", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"id", "💙", "字", "title", "description"})

		for _, novel := range novels {
			desc := htmlutil.StripTags(novel.Description)
			desc = strings.ReplaceAll(desc, "\n", " ")
			t.AppendRow(table.Row{
				novel.ID,
				novel.BookmarkCount,
				novel.TextCount,
				novel.Rating.Sign() + novel.Title,
				textutil.TruncateBytes(desc, 60, "…"),
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
