// Command reprint is the desktop-side client for the reprint hub: it signs in,
// keeps the token fresh and opens the web app without a second login.
//
// Usage:
//
//	reprint [flags] login [-username name]
//	reprint [flags] logout | whoami | status | web | watch
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-envconfig"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], envconfig.OsLookuper(), stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	os.Exit(code)
}
