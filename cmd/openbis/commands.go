package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/juju/gnuflag"

	"github.com/mnehpets/openbis/dto"
	"github.com/mnehpets/openbis/sessionstore"
)

func subFlags(a *app, name string) *gnuflag.FlagSet {
	fs := gnuflag.NewFlagSet(name, gnuflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	var asUser string
	var anonymous bool
	fs := subFlags(a, "login")
	fs.StringVar(&asUser, "as", "", "log in as another user (needs admin rights)")
	fs.BoolVar(&anonymous, "anonymous", false, "log in as the anonymous user")
	if err := fs.Parse(true, args); err != nil {
		return errUsage
	}
	switch fs.NArg() {
	case 0:
	case 1:
		a.cfg.User = fs.Arg(0)
	default:
		return errUsage
	}

	f, err := a.facade(ctx)
	if err != nil {
		return err
	}
	st, err := a.store()
	if err != nil {
		return err
	}

	if anonymous {
		if _, err := f.LoginAsAnonymousUser(ctx); err != nil {
			return err
		}
	} else {
		if a.cfg.User == "" {
			return errors.New("no user; pass one or set --user or OPENBIS_USER")
		}
		pass, err := a.readPassword()
		if err != nil {
			return err
		}
		if asUser != "" {
			_, err = f.LoginAs(ctx, a.cfg.User, pass, asUser)
		} else {
			_, err = f.Login(ctx, a.cfg.User, pass)
		}
		if err != nil {
			return err
		}
	}

	s := f.Session()
	if err := st.Save(sessionstore.Record{URL: a.cfg.URL, User: s.User, Token: s.Token}); err != nil {
		return err
	}
	a.log.Info("logged in", "url", a.cfg.URL, "user", s.User)
	fmt.Fprintf(a.stdout, "logged in to %s as %s\n", a.cfg.URL, s.User)
	return nil
}

func (a *app) readPassword() (string, error) {
	if p, ok := password(); ok {
		return p, nil
	}
	sc := bufio.NewScanner(a.stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no password on standard input or in OPENBIS_PASSWORD")
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}

func logoutCommand(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	f, st, _, err := a.resume(ctx)
	if errors.Is(err, errNotLoggedIn) {
		fmt.Fprintln(a.stdout, "not logged in")
		return nil
	}
	if err != nil {
		return err
	}
	logoutErr := f.Logout(ctx)
	if err := st.Delete(a.cfg.URL); err != nil {
		return err
	}
	if logoutErr != nil {
		return fmt.Errorf("session removed locally: %w", logoutErr)
	}
	fmt.Fprintln(a.stdout, "logged out")
	return nil
}

func statusCommand(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	f, _, rec, err := a.resume(ctx)
	if errors.Is(err, errNotLoggedIn) {
		fmt.Fprintln(a.stdout, "not logged in")
		return nil
	}
	if err != nil {
		return err
	}
	active, err := f.IsSessionActive(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "url:\t%s\n", rec.URL)
	fmt.Fprintf(tw, "user:\t%s\n", rec.User)
	fmt.Fprintf(tw, "saved:\t%s\n", rec.SavedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "active:\t%t\n", active)
	return tw.Flush()
}

func callCommand(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	method, raw := args[0], args[1:]
	params := make([]any, len(raw))
	for i, r := range raw {
		dec := json.NewDecoder(strings.NewReader(r))
		dec.UseNumber()
		if err := dec.Decode(&params[i]); err != nil {
			return fmt.Errorf("parameter %d is not JSON: %w", i+1, err)
		}
	}

	f, _, _, err := a.resume(ctx)
	if err != nil {
		return err
	}
	res, err := f.CallOpaque(ctx, method, params...)
	if err != nil {
		return err
	}
	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, out, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(a.stdout)
	return err
}

func filesCommand(ctx context.Context, a *app, args []string) error {
	var stores string
	fs := subFlags(a, "files")
	fs.StringVar(&stores, "store", "", "comma-separated data store codes (default all)")
	if err := fs.Parse(true, args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	var codes []string
	for _, c := range strings.Split(stores, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}

	f, _, _, err := a.resume(ctx)
	if err != nil {
		return err
	}
	res, err := f.GetDataStoreFacade(codes...).SearchFiles(ctx, dto.DataSetFileSearch().WithDataSet(fs.Arg(0)), nil)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SIZE\tPATH\n")
	for _, file := range res.Objects {
		size := fmt.Sprint(file.FileLength)
		if file.Directory {
			size = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", size, file.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d files\n", res.TotalCount)
	return nil
}
