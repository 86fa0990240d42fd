// Command boardctl drives the creative board from a terminal through the same
// client engine a board UI uses: moves are validated locally, sent to the
// API and reconciled against the server's answer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/creative-board/internal/client"
	"github.com/spec-kit/creative-board/internal/config"
	"github.com/spec-kit/creative-board/internal/observability"
)

// command is one boardctl subcommand.
type command struct {
	name    string
	summary string
	usage   string
	flags   func(fs *pflag.FlagSet)
	run     func(ctx context.Context, env *environment, args []string) error
}

// environment is shared by every subcommand.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	flags  *pflag.FlagSet
	out    io.Writer
	errOut io.Writer
}

// errOutcome marks a command whose outcome was reported but did not succeed.
var errOutcome = errors.New("operation did not fully succeed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errOutcome) {
			fmt.Fprintln(os.Stderr, styles.failure.Render("error: "+err.Error()))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	global := pflag.NewFlagSet("boardctl", pflag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.SetInterspersed(false)
	global.StringVar(&cfg.Client.APIURL, "api-url", cfg.Client.APIURL, "board API base URL")
	global.StringVar(&cfg.Client.Token, "token", cfg.Client.Token, "bearer token")
	global.IntVar(&cfg.Client.TimeoutSeconds, "timeout", cfg.Client.TimeoutSeconds, "request timeout in seconds")
	logLevel := global.String("log-level", "warn", "client log level")
	help := global.BoolP("help", "h", false, "show help")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n\nRun 'boardctl --help' for usage", err)
	}

	rest := global.Args()
	if *help || len(rest) == 0 {
		printUsage(out, global)
		return nil
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		return fmt.Errorf("unknown command %q\n\nRun 'boardctl --help' for usage", rest[0])
	}

	cfg.Logger.Level = *logLevel
	cfg.Logger.Output = "stderr"
	cfg.Logger.Format = "console"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	cmdHelp := fs.BoolP("help", "h", false, "show help")
	if err := fs.Parse(rest[1:]); err != nil {
		return fmt.Errorf("%w\n\nUsage: %s", err, cmd.usage)
	}
	if *cmdHelp {
		fmt.Fprintf(out, "%s\n\nUsage: %s\n\n%s", cmd.summary, cmd.usage, fs.FlagUsages())
		return nil
	}

	env := &environment{cfg: cfg, logger: logger, flags: fs, out: out, errOut: errOut}
	return cmd.run(ctx, env, fs.Args())
}

func lookup(name string) (*command, bool) {
	for i := range commands {
		if commands[i].name == name {
			return &commands[i], true
		}
	}
	return nil, false
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, styles.title.Render("boardctl")+" - drive the creative board from a terminal")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, global.FlagUsages())
}

// startEngine authenticates and loads the viewer's board.
func (env *environment) startEngine(ctx context.Context) (*client.Engine, error) {
	if strings.TrimSpace(env.cfg.Client.Token) == "" {
		return nil, errors.New("no token: pass --token or set BOARD_API_TOKEN (see 'boardctl token')")
	}
	gateway := client.NewHTTPGateway(env.cfg.Client.APIURL, env.cfg.Client.Token, env.cfg.Client.Timeout())
	engine := client.NewEngine(client.EngineDependencies{
		Gateway:  gateway,
		Notifier: client.NotifierFunc(env.notify),
		Logger:   env.logger,
	})
	if err := engine.Start(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", env.cfg.Client.APIURL, err)
	}
	return engine, nil
}

func (env *environment) notify(_ context.Context, outcome client.Outcome) {
	fmt.Fprintln(env.out, renderOutcome(outcome))
}
