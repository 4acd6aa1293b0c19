// runcode sends a source file to Judge0 and prints the outcome.
//
// Usage:
//
//	CODETUBE_JUDGE_API_KEY=... go run ./cmd/runcode run --lang 71 --file hello.py
//	go run ./cmd/runcode languages
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/codetube/codetube/internal/code"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "runcode",
		Usage: "run code on a Judge0 instance",
		// exit codes are handled in main
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "https://judge0-ce.p.rapidapi.com",
				Usage:   "Judge0 base URL",
				Sources: cli.EnvVars("CODETUBE_JUDGE_URL"),
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "Judge0 API key",
				Sources: cli.EnvVars("CODETUBE_JUDGE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "judge0-ce.p.rapidapi.com",
				Usage:   "RapidAPI host",
				Sources: cli.EnvVars("CODETUBE_JUDGE_API_HOST"),
			},
			&cli.BoolFlag{
				Name:    "self-hosted",
				Usage:   "send the key as X-Auth-Token and no RapidAPI host",
				Sources: cli.EnvVars("CODETUBE_JUDGE_SELF_HOSTED"),
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "delay between status checks",
				Sources: cli.EnvVars("CODETUBE_JUDGE_POLL_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "max-polls",
				Value:   60,
				Usage:   "status checks before giving up (0 = unbounded)",
				Sources: cli.EnvVars("CODETUBE_JUDGE_MAX_POLLS"),
			},
			&cli.DurationFlag{
				Name:    "max-wait",
				Value:   2 * time.Minute,
				Usage:   "wall time before giving up (0 = unbounded)",
				Sources: cli.EnvVars("CODETUBE_JUDGE_MAX_WAIT"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log requests to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "submit a file and wait for the result",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "lang", Usage: "Judge0 language id", Required: true},
					&cli.StringFlag{Name: "file", Usage: "source file, - for stdin", Required: true},
					&cli.StringFlag{Name: "stdin", Usage: "file passed to the program as stdin"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runFile(ctx, cmd, out)
				},
			},
			{
				Name:  "languages",
				Usage: "list available languages",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					langs, err := newClient(cmd).Languages(ctx)
					if err != nil {
						return err
					}
					for _, l := range langs {
						fmt.Fprintf(out, "%4d  %s\n", l.ID, l.Name)
					}
					return nil
				},
			},
		},
	}
}

func newClient(cmd *cli.Command) *code.Judge0Client {
	logger := zap.NewNop()
	if cmd.Bool("verbose") {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	return code.NewJudge0Client(judgeConfig(cmd), code.WithLogger(logger))
}

func judgeConfig(cmd *cli.Command) code.Judge0Config {
	host := cmd.String("host")
	if cmd.Bool("self-hosted") {
		host = ""
	}
	return code.Judge0Config{
		URL:          cmd.String("url"),
		APIKey:       cmd.String("key"),
		APIHost:      host,
		PollInterval: cmd.Duration("interval"),
		MaxPolls:     cmd.Int("max-polls"),
		MaxWait:      cmd.Duration("max-wait"),
	}
}

func runFile(ctx context.Context, cmd *cli.Command, out io.Writer) error {
	src, err := readInput(cmd.String("file"))
	if err != nil {
		return err
	}
	var stdin []byte
	if p := cmd.String("stdin"); p != "" {
		if stdin, err = readInput(p); err != nil {
			return err
		}
	}

	res, err := newClient(cmd).Run(ctx, code.Request{
		SourceCode: string(src),
		LanguageID: cmd.Int("lang"),
		Stdin:      string(stdin),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "status: %s (%d)\n", res.Status.Description, res.Status.ID)
	if res.Time != nil {
		fmt.Fprintf(out, "time:   %ss\n", *res.Time)
	}
	if res.Memory != nil {
		fmt.Fprintf(out, "memory: %d KB\n", *res.Memory)
	}
	if res.Stdout != nil && *res.Stdout != "" {
		fmt.Fprintf(out, "--- stdout\n%s", *res.Stdout)
	}
	if msg := res.ErrorOutput(); msg != "" {
		fmt.Fprintf(out, "--- errors\n%s\n", msg)
	}
	if !res.Accepted() {
		return cli.Exit("program did not run successfully", 2)
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
