package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type passwordResetter interface {
	ResetPassword(ctx context.Context, name, password string) error
}

type commandLine struct {
	migrate func(command string, args ...string) error
	admins  passwordResetter
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run goose migrations (up, down, status, version, redo, reset, up-to N, down-to N)")
	fmt.Fprintln(cli.out, "  resetpassword -name NAME - reset an admin's password, prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordName := resetPasswordCmd.String("name", "", "The admin name. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.migrate(args[2], args[3:]...); err != nil {
			return fmt.Errorf("migrate %s: %w", args[2], err)
		}
		fmt.Fprintf(cli.out, "migrate %s: done\n", args[2])
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordName == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		if err := cli.admins.ResetPassword(context.Background(), *resetPasswordName, string(pwd)); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "password of %s updated\n", *resetPasswordName)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
