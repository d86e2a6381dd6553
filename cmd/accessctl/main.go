// Command accessctl drives the access API from a terminal.
//
//	accessctl -url http://localhost:8080 -email root@example.com dashboard
//	accessctl approve <user-id>
//
// The password is read from ACCESS_PASSWORD. Every invocation logs in,
// runs one command and logs out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sheetviz/access-api/internal/client"
	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/pkg/logger"
)

var sections = []struct {
	title string
	state domain.State
}{
	{"Pending admin requests", domain.StatePendingAdminRequest},
	{"Active admins", domain.StateActiveAdmin},
	{"Regular users", domain.StateRegularUser},
	{"Rejected users", domain.StateRejectedRequest},
	{"Superadmins", domain.StateSuperAdmin},
}

func main() {
	baseURL := flag.String("url", envOr("ACCESS_URL", "http://localhost:8080"), "API base URL")
	email := flag.String("email", os.Getenv("ACCESS_EMAIL"), "login email")
	timeout := flag.Duration("timeout", 15*time.Second, "overall command timeout")
	verbose := flag.Bool("v", false, "log every API call")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: true, Output: os.Stderr, Service: "accessctl"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := client.New(*baseURL, client.WithLogger(log))
	if err := run(ctx, c, *email, os.Getenv("ACCESS_PASSWORD"), flag.Args(), os.Stdout); err != nil {
		log.Error().Err(err).Bool("retryable", client.Retryable(err)).Msg(flag.Arg(0))
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, email, password string, args []string, out io.Writer) error {
	if email == "" || password == "" {
		return errors.New("set -email (or ACCESS_EMAIL) and ACCESS_PASSWORD")
	}

	s, err := c.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() { _ = c.Logout(context.Background(), s) }()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "profile":
		u, err := c.Profile(ctx, s)
		if err != nil {
			return err
		}
		printUsers(out, []domain.User{*u})
		return nil

	case "users":
		users, err := c.Users(ctx, s)
		if err != nil {
			return err
		}
		printUsers(out, users)
		return nil

	case "dashboard":
		vm, err := client.NewDashboard(c, s).Load(ctx)
		if err != nil {
			return err
		}
		printDashboard(out, vm)
		return nil

	case "history":
		if len(rest) != 1 {
			return errors.New("usage: history <user-id>")
		}
		events, err := c.History(ctx, s, rest[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AT\tKIND\tFROM\tTO\tACTOR")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s (%s)\n", e.At.Format(time.RFC3339), e.Kind, e.From, e.To, e.ActorID, e.ActorRole)
		}
		return w.Flush()
	}

	kind, err := domain.ParseTransitionKind(cmd)
	if err != nil {
		return fmt.Errorf("unknown command %q", cmd)
	}

	var id string
	if kind != domain.KindRequestAdmin {
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s <user-id>", cmd)
		}
		id = rest[0]
	}

	res, err := c.Apply(ctx, s, kind, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s -> role=%s status=%s)\n", res.Message, res.User.ID, res.User.Role, res.User.AdminRequestStatus)
	return nil
}

func printUsers(out io.Writer, users []domain.User) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tREQUEST")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.AdminRequestStatus.Normalize())
	}
	_ = w.Flush()
}

func printDashboard(out io.Writer, vm *domain.ViewModel) {
	c := vm.Counts
	fmt.Fprintf(out, "viewer=%s total=%d users=%d pending=%d admins=%d rejected=%d superadmins=%d\n",
		vm.Viewer, c.Total, c.Users, c.Pending, c.Admins, c.Rejected, c.SuperAdmins)

	for _, sec := range sections {
		rows := vm.Partition(sec.state)
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s\n", sec.title)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range rows {
			actions := make([]string, len(r.Actions))
			for i, a := range r.Actions {
				actions[i] = string(a)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t[%s]\n", r.ID, r.Name, r.Email, strings.Join(actions, " "))
		}
		_ = w.Flush()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: accessctl [flags] <command> [user-id]

commands:
  profile | users | dashboard | history <id>
  request-admin
  approve | reject | reject-admin | grant-admin | grant-user | unreject | block <id>

flags:
`)
	flag.PrintDefaults()
}
