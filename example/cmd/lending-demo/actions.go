package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"

	"github.com/liblend/lending-engine-go/example/shared/shell"
	"github.com/liblend/lending-engine-go/example/shared/shell/config"
	"github.com/liblend/lending-engine-go/lending"
	"github.com/liblend/lending-engine-go/lending/postgresengine"
	"github.com/liblend/lending-engine-go/lending/postgresengine/schema"
)

const (
	flagSessionPatron = "session-patron"
	flagPatron        = "patron"
	flagVerbose       = "verbose"

	dateLayout = "2006-01-02"
)

var errStaffSessionRequired = errors.New("this command requires a staff session (--session-patron with a staff patron)")

var prettyJSON = jsoniter.ConfigDefault

// appEnv bundles what every demo command needs: a connected engine and a
// context that carries the caller's session.
type appEnv struct {
	ctx    context.Context
	engine postgresengine.Engine
	logger *slog.Logger
}

type actionFunc func(env appEnv, c *cli.Context) error

// withApp connects to the database, resolves the session patron, and runs
// the wrapped action.
func withApp(logger *slog.Logger, action actionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := c.Context

		settings, err := config.LoadPostgresSettings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		pool, err := config.PostgresPGXPool(ctx, settings)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()

		engineOptions := []postgresengine.Option{}
		if c.Bool(flagVerbose) {
			engineOptions = append(engineOptions,
				postgresengine.WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
		} else {
			engineOptions = append(engineOptions, postgresengine.WithLogger(logger))
		}

		engine, err := postgresengine.NewEngineFromPGXPool(pool, engineOptions...)
		if err != nil {
			return fmt.Errorf("creating lending engine: %w", err)
		}

		if patronID := c.Int64(flagSessionPatron); patronID != 0 {
			patron, getErr := engine.GetPatron(ctx, patronID)
			if getErr != nil {
				return fmt.Errorf("resolving session patron: %w", getErr)
			}

			ctx = lending.WithSession(ctx, lending.NewSession(patron.ID, patron.Role))
		}

		return action(appEnv{ctx: ctx, engine: engine, logger: logger}, c)
	}
}

// requireStaff refuses the command unless the session patron has the staff role.
func requireStaff(ctx context.Context) error {
	session, ok := lending.SessionFrom(ctx)
	if !ok || session.Role != lending.RoleStaff {
		return errStaffSessionRequired
	}

	return nil
}

func runMigrate(env appEnv, _ *cli.Context) error {
	settings, err := config.LoadPostgresSettings()
	if err != nil {
		return err
	}

	db, err := config.PostgresSQLDB(env.ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err = schema.Up(db); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	env.logger.Info("lending schema is up to date")

	return nil
}

func runBorrow(env appEnv, c *cli.Context) error {
	patronID, err := int64Arg(c, 0, "patron-id")
	if err != nil {
		return err
	}

	copyID, err := int64Arg(c, 1, "copy-id")
	if err != nil {
		return err
	}

	borrowDate, err := dateArg(c, 2, "borrow-date")
	if err != nil {
		return err
	}

	var loan lending.Loan

	err = shell.RetryWithExponentialBackoff(env.ctx, func(ctx context.Context) error {
		var createErr error
		loan, createErr = env.engine.CreateLoan(ctx, patronID, copyID, borrowDate, nil)
		return createErr
	})
	if err != nil {
		return err
	}

	return printJSON(loan)
}

func runReturn(env appEnv, c *cli.Context) error {
	loanID, err := int64Arg(c, 0, "loan-id")
	if err != nil {
		return err
	}

	returnDate, err := dateArg(c, 1, "return-date")
	if err != nil {
		return err
	}

	var loan lending.Loan

	err = shell.RetryWithExponentialBackoff(env.ctx, func(ctx context.Context) error {
		var closeErr error
		loan, closeErr = env.engine.CloseLoan(ctx, loanID, returnDate)
		return closeErr
	})
	if err != nil {
		return err
	}

	return printJSON(loan)
}

func runEdit(env appEnv, c *cli.Context) error {
	loanID, err := int64Arg(c, 0, "loan-id")
	if err != nil {
		return err
	}

	borrowDate, err := dateArg(c, 1, "borrow-date")
	if err != nil {
		return err
	}

	var returnDate *time.Time
	if raw := c.Args().Get(2); raw != "" && raw != "-" {
		parsed, parseErr := time.Parse(dateLayout, raw)
		if parseErr != nil {
			return fmt.Errorf("invalid return-date %q: %w", raw, parseErr)
		}
		returnDate = &parsed
	}

	var loan lending.Loan

	err = shell.RetryWithExponentialBackoff(env.ctx, func(ctx context.Context) error {
		var editErr error
		loan, editErr = env.engine.EditLoan(ctx, loanID, borrowDate, returnDate)
		return editErr
	})
	if err != nil {
		return err
	}

	return printJSON(loan)
}

func runDelete(env appEnv, c *cli.Context) error {
	if err := requireStaff(env.ctx); err != nil {
		return err
	}

	loanID, err := int64Arg(c, 0, "loan-id")
	if err != nil {
		return err
	}

	return shell.RetryWithExponentialBackoff(env.ctx, func(ctx context.Context) error {
		return env.engine.DeleteLoan(ctx, loanID)
	})
}

func runListLoans(env appEnv, c *cli.Context) error {
	var (
		loans []lending.Loan
		err   error
	)

	if patronID := c.Int64(flagPatron); patronID != 0 {
		loans, err = env.engine.ListLoansByPatron(env.ctx, patronID)
	} else {
		loans, err = env.engine.ListLoans(env.ctx)
	}

	if err != nil {
		return err
	}

	return printJSON(loans)
}

func runListAvailable(env appEnv, _ *cli.Context) error {
	copies, err := env.engine.ListAvailableCopies(env.ctx)
	if err != nil {
		return err
	}

	return printJSON(copies)
}

func runAddTitle(env appEnv, c *cli.Context) error {
	if err := requireStaff(env.ctx); err != nil {
		return err
	}

	title, err := env.engine.AddTitle(env.ctx, c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
	if err != nil {
		return err
	}

	return printJSON(title)
}

func runAddPatron(env appEnv, c *cli.Context) error {
	if err := requireStaff(env.ctx); err != nil {
		return err
	}

	role, err := lending.ParseRole(c.Args().Get(2))
	if err != nil {
		return err
	}

	patron, err := env.engine.AddPatron(env.ctx, c.Args().Get(0), c.Args().Get(1), role)
	if err != nil {
		return err
	}

	return printJSON(patron)
}

func runAddCopy(env appEnv, c *cli.Context) error {
	if err := requireStaff(env.ctx); err != nil {
		return err
	}

	titleID, err := int64Arg(c, 0, "title-id")
	if err != nil {
		return err
	}

	copyNumber, err := intArg(c, 1, "copy-number")
	if err != nil {
		return err
	}

	newCopy, err := env.engine.AddCopy(env.ctx, titleID, copyNumber)
	if err != nil {
		return err
	}

	return printJSON(newCopy)
}

func runRemoveCopy(env appEnv, c *cli.Context) error {
	if err := requireStaff(env.ctx); err != nil {
		return err
	}

	copyID, err := int64Arg(c, 0, "copy-id")
	if err != nil {
		return err
	}

	return env.engine.RemoveCopy(env.ctx, copyID)
}

func runRemovePatron(env appEnv, c *cli.Context) error {
	if err := requireStaff(env.ctx); err != nil {
		return err
	}

	patronID, err := int64Arg(c, 0, "patron-id")
	if err != nil {
		return err
	}

	return env.engine.RemovePatron(env.ctx, patronID)
}

func int64Arg(c *cli.Context, position int, name string) (int64, error) {
	raw := c.Args().Get(position)

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}

	return value, nil
}

func intArg(c *cli.Context, position int, name string) (int, error) {
	value, err := int64Arg(c, position, name)
	return int(value), err
}

func dateArg(c *cli.Context, position int, name string) (time.Time, error) {
	raw := c.Args().Get(position)

	value, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}

	return value, nil
}

func printJSON(v any) error {
	out, err := prettyJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}
