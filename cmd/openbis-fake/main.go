// Command openbis-fake runs the in-memory openBIS of package openbistest on
// a local port, for trying the openbis command without a real server.
//
//	openbis-fake --user alice:secret --admin admin:changeit --store DSS1,DSS2 --space LAB
//
// It prints the server URL and runs until interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/juju/gnuflag"

	"github.com/mnehpets/openbis/openbistest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var users, admins, stores, spaces, anonymous string
	var debug bool
	fs := gnuflag.NewFlagSet("openbis-fake", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&users, "user", "", "comma-separated user:password pairs")
	fs.StringVar(&admins, "admin", "admin:changeit", "comma-separated admin user:password pairs")
	fs.StringVar(&anonymous, "anonymous", "", "user for anonymous logins (disabled when empty)")
	fs.StringVar(&stores, "store", "DSS1", "comma-separated data store codes")
	fs.StringVar(&spaces, "space", "", "comma-separated spaces to create")
	fs.BoolVar(&debug, "debug", false, "log every request")
	if err := fs.Parse(true, args); err != nil {
		return 2
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opts := []openbistest.Option{
		openbistest.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))),
	}
	accounts := []struct {
		pairs string
		add   func(user, password string) openbistest.Option
	}{
		{users, openbistest.WithUser},
		{admins, openbistest.WithAdmin},
	}
	for _, acc := range accounts {
		for _, pair := range list(acc.pairs) {
			user, pass, ok := strings.Cut(pair, ":")
			if !ok || user == "" {
				fmt.Fprintf(stderr, "openbis-fake: %q is not user:password\n", pair)
				return 2
			}
			opts = append(opts, acc.add(user, pass))
		}
	}
	if anonymous != "" {
		opts = append(opts, openbistest.WithAnonymousUser(anonymous))
	}
	for _, code := range list(stores) {
		opts = append(opts, openbistest.WithDataStore(code))
	}

	srv := openbistest.NewServer(opts...)
	defer srv.Close()
	for _, code := range list(spaces) {
		srv.AddSpace(code)
	}

	fmt.Fprintf(stdout, "openBIS fake server at %s\n", srv.URL)
	fmt.Fprintf(stdout, "export OPENBIS_URL=%s OPENBIS_ALLOW_HTTP=true\n", srv.URL)
	<-ctx.Done()
	return 0
}

func list(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
