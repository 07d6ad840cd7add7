package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jefrnc/stratlab/internal/admin"
	"github.com/jefrnc/stratlab/internal/present"
)

func runAdmin(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stratlab admin users|user-strategies|strategies|comparisons|delete-user [options]")
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("admin "+sub, flag.ExitOnError)
	o := globalFlags(fs)
	var yes *bool
	switch sub {
	case "users", "strategies", "comparisons":
		usage(fs, "admin "+sub+" [options]")
	case "user-strategies":
		usage(fs, "admin user-strategies [options] <user-id>")
	case "delete-user":
		yes = fs.Bool("yes", false, "Delete without asking")
		usage(fs, "admin delete-user [options] <user-id>")
	default:
		return fmt.Errorf("unknown admin command %q", sub)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	svc := admin.NewService(a.client, a.auth, a.logger)

	switch sub {
	case "users":
		users, err := svc.Users(ctx)
		if err != nil {
			return err
		}
		present.UserList(os.Stdout, users)

	case "strategies":
		strategies, err := svc.Strategies(ctx)
		if err != nil {
			return err
		}
		present.AdminStrategyList(os.Stdout, strategies)

	case "comparisons":
		comparisons, err := svc.Comparisons(ctx)
		if err != nil {
			return err
		}
		present.ComparisonList(os.Stdout, comparisons)

	case "user-strategies":
		id, err := parseID(fs.Args(), "user")
		if err != nil {
			return err
		}
		strategies, err := svc.UserStrategies(ctx, id)
		if err != nil {
			return err
		}
		present.AdminStrategyList(os.Stdout, strategies)

	case "delete-user":
		id, err := parseID(fs.Args(), "user")
		if err != nil {
			return err
		}
		if !*yes && !newPrompter().confirm(fmt.Sprintf("ユーザー %d とその戦略をすべて削除しますか?", id)) {
			return nil
		}
		if err := svc.DeleteUser(ctx, id); err != nil {
			return err
		}
		fmt.Printf("ユーザー %d を削除しました\n", id)
	}
	return nil
}
