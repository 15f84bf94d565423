package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sahib/config"
	"github.com/sahib/sniffcap/capture"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// ExitCode is an error that maps the error interface to a specific error
// message and a unix exit code
type ExitCode struct {
	Code    int
	Message string
}

func (err ExitCode) Error() string {
	return err.Message
}

// exitCodeFromError sorts `err` into one of our exit codes.
func exitCodeFromError(err error) ExitCode {
	if code, ok := err.(ExitCode); ok {
		return code
	}

	switch {
	case capture.IsBadFile(err), capture.IsShortRead(err), capture.IsNotThisFormat(err):
		return ExitCode{BadFile, err.Error()}
	case capture.IsUnsupported(err):
		return ExitCode{Unsupported, err.Error()}
	}

	return ExitCode{UnknownError, err.Error()}
}

func yesify(val bool) string {
	if val {
		return color.GreenString("yes")
	}

	return color.RedString("no")
}

type checkFunc func(ctx *cli.Context) int

func withArgCheck(checker checkFunc, handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if code := checker(ctx); code != Success {
			return ExitCode{code, "bad arguments"}
		}

		return handler(ctx)
	}
}

func needAtLeast(min int) checkFunc {
	return func(ctx *cli.Context) int {
		if ctx.NArg() < min {
			if min == 1 {
				log.Warningf("Need at least %d argument.", min)
			} else {
				log.Warningf("Need at least %d arguments.", min)
			}

			if err := cli.ShowCommandHelp(ctx, ctx.Command.Name); err != nil {
				log.Warningf("Failed to display --help: %v", err)
			}

			return BadArgs
		}

		return Success
	}
}

// configFromContext returns the config loaded before any command ran.
func configFromContext(ctx *cli.Context) *config.Config {
	cfg, ok := ctx.App.Metadata["config"].(*config.Config)
	if !ok {
		fmt.Fprintln(os.Stderr, "no config loaded; this is a bug")
		os.Exit(UnknownError)
	}

	return cfg
}
