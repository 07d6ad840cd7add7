package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jefrnc/stratlab/internal/auth"
)

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	o := globalFlags(fs)
	token := fs.String("token", "", "Google ID token (prompted when omitted)")

	// Short aliases
	fs.StringVar(token, "t", "", "")

	usage(fs, "login [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	var src auth.CredentialSource = auth.PromptCredential{In: os.Stdin, Out: os.Stderr}
	if *token != "" {
		src = auth.StaticCredential(*token)
	} else if env := os.Getenv("STRATLAB_GOOGLE_TOKEN"); env != "" {
		src = auth.StaticCredential(env)
	}

	ctx, cancel := signalContext()
	defer cancel()

	user, err := a.auth.Login(ctx, src)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func runLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	o := globalFlags(fs)
	usage(fs, "logout [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	o := globalFlags(fs)
	usage(fs, "whoami [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.auth.RequireUser()
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", user.Email)
	if user.Name != "" {
		fmt.Printf("  name: %s\n", user.Name)
	}
	fmt.Printf("  role: %s\n", user.Role)
	return nil
}
