package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"lsx86/internal/lsx86/cmd"
	"lsx86/internal/lsx86/log"
)

func main() {
	defer log.RecoverPanic("main", func() {
		slog.Error("lsx86 terminated due to unhandled panic")
	})

	if os.Getenv("LSX86_PROFILE") != "" {
		go func() {
			slog.Info("Serving pprof at localhost:6060")
			if httpErr := http.ListenAndServe("localhost:6060", nil); httpErr != nil {
				slog.Error("Failed to pprof listen", "error", httpErr)
			}
		}()
	}

	cmd.Execute()
}
