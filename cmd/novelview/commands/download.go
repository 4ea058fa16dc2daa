package commands

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"novelview-backend/lib/serviceutil"
	"novelview-backend/services/novels"
)

var (
	downloadDir     *string
	downloadNoColor *bool
)

func init() {
	downloadDir = downloadCmd.Flags().StringP("out", "o", ".", "The directory to write the novel to.")
	downloadNoColor = downloadCmd.Flags().Bool("nocolor", false, "Disable speaker name coloring.")
	rootCmd.AddCommand(downloadCmd)
}

// novel pages are usually pasted as full urls; accept those alongside
// bare ids
func parseNovelID(arg string) (string, error) {
	if !strings.Contains(arg, "/") {
		return arg, nil
	}
	parsed, err := url.Parse(arg)
	if err != nil {
		return "", err
	}
	if id := parsed.Query().Get("id"); id != "" {
		return id, nil
	}
	// the /novel/show.php?id= form above is the old one; new pages
	// live at /novel/<id>
	id := strings.TrimPrefix(strings.Trim(parsed.Path, "/"), "novel/")
	if id != "" && strings.IndexFunc(id, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		return id, nil
	}
	return "", fmt.Errorf("no novel id in %q", arg)
}

var downloadCmd = &cobra.Command{
	Use:   "download <novel id or url>...",
	Short: "Downloads novels as standalone HTML files, images inlined.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := newService()

		for _, arg := range args {
			novelID, err := parseNovelID(arg)
			if err != nil {
				serviceutil.Fatal("bad novel reference", err)
			}
			detail, err := service.Novel(ctx, novelID)
			if err != nil {
				serviceutil.Fatal("failed to fetch novel", err)
			}
			page, err := service.RenderNovel(ctx, &detail, novels.ReaderOptions{
				Colorize:     !*downloadNoColor,
				InlineImages: true,
			})
			if err != nil {
				serviceutil.Fatal("failed to render novel", err)
			}
			path, err := novels.SaveNovel(*downloadDir, &detail, page)
			if err != nil {
				serviceutil.Fatal("failed to write novel", err)
			}
			slog.Info("saved novel", "title", detail.Title, "path", path)
		}
	},
}
