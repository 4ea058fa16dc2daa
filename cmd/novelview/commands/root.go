package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"novelview-backend/lib/cookiestxt"
	"novelview-backend/lib/filecache"
	"novelview-backend/lib/restyutil"
	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/lib/telemetry"
	"novelview-backend/services/novels"
)

var (
	cookiesPath *string
	cacheDir    *string
	verbose     *bool
)

func init() {
	cookiesPath = rootCmd.PersistentFlags().String("cookies", "cookies.txt", "Netscape cookies.txt with a pixiv session, enables R-18 rankings.")
	cacheDir = rootCmd.PersistentFlags().String("cache", ".dev/cache", "Directory for cached responses, empty disables caching.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every request.")
}

var rootCmd = &cobra.Command{
	Use:   "novelview",
	Short: "novelview is a scraping proxy and reader for pixiv novels.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService wires the shared client + cache pair the subcommands run
// on. A missing cookies.txt is not an error, it only locks out the
// R-18 rankings.
func newService() novels.Service {
	cookie, err := cookiestxt.Load(*cookiesPath, "pixiv.net")
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no cookies.txt found, R-18 rankings are unavailable", "path", *cookiesPath)
	} else if err != nil {
		slog.Warn("could not read cookies.txt", "path", *cookiesPath, "err", err)
	}

	if *verbose {
		pixiv.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/pixiv"))
	}

	return novels.NewService(novels.ServiceOptions{
		Client: pixiv.NewClient(pixiv.ClientOptions{Cookie: cookie}),
		Cache:  filecache.New(*cacheDir),
	})
}
