package serviceutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Returns a context that will live until Ctrl+C is pressed
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}

type TLS struct {
	CertFile string
	KeyFile  string
}

func (t TLS) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

func StartHttpServer(host string, port int, handler http.Handler, tls TLS) {
	addr := fmt.Sprintf("%s:%d", host, port)

	var err error
	if tls.Enabled() {
		slog.Info("listening with TLS...", "addr", addr)
		err = http.ListenAndServeTLS(addr, tls.CertFile, tls.KeyFile, handler)
	} else {
		slog.Info("listening...", "addr", addr)
		err = http.ListenAndServe(addr, h2c.NewHandler(handler, &http2.Server{}))
	}
	if err != nil {
		Fatal(fmt.Sprintf("failed to listen on %s", addr), err)
	}
}

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
