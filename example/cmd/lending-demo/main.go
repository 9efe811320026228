// Command lending-demo is a small CLI against the lending database, intended
// for local experiments with the lending engine and the retry shell.
//
// Mutating catalog commands carry a session; patron-management and removal
// commands require a staff session and are refused otherwise.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	app := &cli.App{
		Name:  "lending-demo",
		Usage: "exercise the lending engine against a local PostgreSQL database",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  flagSessionPatron,
				Usage: "patron id acting in this session (staff role unlocks catalog management)",
			},
			&cli.BoolFlag{
				Name:  flagVerbose,
				Usage: "log SQL statements with timings",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply the lending schema migrations",
				Action: withApp(logger, runMigrate),
			},
			{
				Name:      "borrow",
				Usage:     "create a loan: borrow a copy for a patron",
				ArgsUsage: "<patron-id> <copy-id> <borrow-date>",
				Action:    withApp(logger, runBorrow),
			},
			{
				Name:      "return",
				Usage:     "close a loan: record the return of the copy",
				ArgsUsage: "<loan-id> <return-date>",
				Action:    withApp(logger, runReturn),
			},
			{
				Name:      "edit",
				Usage:     "edit the dates of a loan ('-' as return date reopens it)",
				ArgsUsage: "<loan-id> <borrow-date> <return-date|->",
				Action:    withApp(logger, runEdit),
			},
			{
				Name:      "delete",
				Usage:     "delete a loan record (staff only)",
				ArgsUsage: "<loan-id>",
				Action:    withApp(logger, runDelete),
			},
			{
				Name:   "loans",
				Usage:  "list loans, optionally for one patron",
				Flags:  []cli.Flag{&cli.Int64Flag{Name: flagPatron}},
				Action: withApp(logger, runListLoans),
			},
			{
				Name:   "available",
				Usage:  "list copies currently available for lending",
				Action: withApp(logger, runListAvailable),
			},
			{
				Name:      "add-title",
				Usage:     "add a catalog title (staff only)",
				ArgsUsage: "<code> <name> <author>",
				Action:    withApp(logger, runAddTitle),
			},
			{
				Name:      "add-patron",
				Usage:     "register a patron (staff only; role is 'regular' or 'staff')",
				ArgsUsage: "<name> <email> <role>",
				Action:    withApp(logger, runAddPatron),
			},
			{
				Name:      "add-copy",
				Usage:     "add a physical copy of a title (staff only)",
				ArgsUsage: "<title-id> <copy-number>",
				Action:    withApp(logger, runAddCopy),
			},
			{
				Name:      "remove-copy",
				Usage:     "remove an available copy (staff only)",
				ArgsUsage: "<copy-id>",
				Action:    withApp(logger, runRemoveCopy),
			},
			{
				Name:      "remove-patron",
				Usage:     "remove a patron without loan history (staff only)",
				ArgsUsage: "<patron-id>",
				Action:    withApp(logger, runRemovePatron),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
