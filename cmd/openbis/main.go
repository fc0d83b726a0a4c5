// Command openbis talks to an openBIS server from the shell.
//
//	openbis [global flags] login [user]
//	openbis [global flags] status
//	openbis [global flags] call <method> [json-param...]
//	openbis [global flags] files [--store CODE,...] <dataset-code>
//	openbis [global flags] logout
//
// The session token is kept between runs in the session directory, sealed
// with a key derived from OPENBIS_SESSION_PASSPHRASE or, without one, a
// random key file next to the records. The password for login is read from
// OPENBIS_PASSWORD or the first line of standard input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/juju/gnuflag"

	"github.com/mnehpets/openbis/internal/config"
	"github.com/mnehpets/openbis/internal/logger"
	"github.com/mnehpets/openbis/internal/tracer"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "[--as USER] [--anonymous] [user]", "log in and save the session", loginCommand},
	{"logout", "", "end the saved session", logoutCommand},
	{"status", "", "show the saved session and whether it is still active", statusCommand},
	{"call", "<method> [json-param...]", "call an application server method with the session token", callCommand},
	{"files", "[--store CODE,...] <dataset-code>", "list the files of a data set", filesCommand},
}

// app is what every subcommand gets: the resolved configuration and the
// standard streams.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func defaultConfigPath() string {
	if p := os.Getenv(config.EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "openbis", "config.yaml")
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		configPath string
		envPath    string
		url        string
		user       string
		allowHTTP  bool
		debug      bool
	)
	fs := gnuflag.NewFlagSet("openbis", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", defaultConfigPath(), "config file (.yaml or .toml)")
	fs.StringVar(&envPath, "env", ".env", "dotenv file with OPENBIS_* settings")
	fs.StringVar(&url, "url", "", "openBIS server URL")
	fs.StringVar(&user, "user", "", "user name")
	fs.StringVar(&user, "u", "", "")
	fs.BoolVar(&allowHTTP, "allow-http", false, "permit a plain http server URL")
	fs.BoolVar(&debug, "debug", false, "log at debug level")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(false, args); err != nil {
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return exitUsage
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == rest[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "openbis: unknown command %q\n", rest[0])
		usage(stderr, fs)
		return exitUsage
	}

	cfg, err := config.Read(configPath, envPath)
	if err != nil {
		fmt.Fprintf(stderr, "openbis: %v\n", err)
		return exitError
	}
	if url != "" {
		cfg.URL = url
	}
	if user != "" {
		cfg.User = user
	}
	if allowHTTP {
		cfg.AllowHTTP = true
	}
	if debug {
		cfg.Logger.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "openbis: %v\n", err)
		return exitError
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "openbis: %v\n", err)
		return exitError
	}
	defer closeLog()

	shutdown, err := tracer.Setup(ctx, cfg.Tracer, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "openbis: %v\n", err)
		return exitError
	}
	defer shutdown(context.Background())

	a := &app{cfg: cfg, log: log, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: openbis %s %s\n", cmd.name, cmd.args)
			return exitUsage
		}
		fmt.Fprintf(stderr, "openbis %s: %v\n", cmd.name, err)
		return exitError
	}
	return exitOK
}

func usage(w io.Writer, fs *gnuflag.FlagSet) {
	fmt.Fprintln(w, "usage: openbis [flags] <command> [args]")
	fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-7s %s\n          %s\n", c.name, c.args, c.summary)
	}
	fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}
