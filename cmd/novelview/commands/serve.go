package commands

import (
	"github.com/spf13/cobra"

	"novelview-backend/lib/serviceutil"
	"novelview-backend/lib/telemetry"
	"novelview-backend/services/novels"
)

var (
	serveHost     *string
	servePort     *int
	serveAutoSave *string
	serveNoColor  *bool
	serveSslCert  *string
	serveSslKey   *string
)

func init() {
	serveHost = serveCmd.Flags().String("host", "127.0.0.1", "The address to bind to.")
	servePort = serveCmd.Flags().IntP("port", "p", 8092, "The port to listen on.")
	serveAutoSave = serveCmd.Flags().String("autosave", "", "Save every viewed novel to this directory.")
	serveNoColor = serveCmd.Flags().Bool("nocolor", false, "Disable speaker name coloring.")
	serveSslCert = serveCmd.Flags().String("sslcert", "", "TLS certificate file.")
	serveSslKey = serveCmd.Flags().String("sslkey", "", "TLS key file.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the ranking, search and reader views over HTTP.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)

		handler := novels.NewHandler(novels.ServerOptions{
			Service:     newService(),
			AutoSaveDir: *serveAutoSave,
			Colorize:    !*serveNoColor,
		})
		go serviceutil.StartHttpServer(*serveHost, *servePort, handler, serviceutil.TLS{
			CertFile: *serveSslCert,
			KeyFile:  *serveSslKey,
		})
		<-ctx.Done()
	},
}
