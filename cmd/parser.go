package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sahib/config"
	"github.com/sahib/sniffcap/capture"
	"github.com/sahib/sniffcap/defaults"
	"github.com/sahib/sniffcap/ngsniffer"
	colorlog "github.com/sahib/sniffcap/util/log"
	"github.com/sahib/sniffcap/version"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"github.com/xrash/smetrics"
)

// registry holds every format sniffcap can read.
var registry = capture.NewRegistry(ngsniffer.Format)

func formatGroup(category string) string {
	return strings.ToUpper(category) + " COMMANDS"
}

// logOutput returns where to log and if that is a terminal.
func logOutput(path string) (io.Writer, bool, error) {
	switch path {
	case "stdout":
		return os.Stdout, isatty.IsTerminal(os.Stdout.Fd()), nil
	case "", "stderr":
		return os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), nil
	}

	fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, false, err
	}

	return fd, false, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return defaults.OpenDefaultConfig()
	}

	return defaults.OpenMigratedConfig(path)
}

func setup(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx.GlobalString("config"))
	if err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	ctx.App.Metadata["config"] = cfg

	level := cfg.String("log.level")
	if ctx.GlobalIsSet("log-level") {
		level = ctx.GlobalString("log-level")
	}

	out, isTerm, err := logOutput(ctx.GlobalString("log-path"))
	if err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	noColor := ctx.GlobalBool("no-color")
	if noColor {
		color.NoColor = true
	}

	useColors := isTerm && cfg.Bool("log.colors") && !noColor
	if err := colorlog.Setup(out, level, useColors); err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	return nil
}

// levenshtein returns the edit distance of `s` and `t`,
// relative to the longer one.
func levenshtein(s, t string) float64 {
	s, t = strings.ToLower(s), strings.ToLower(t)
	longest := len(s)
	if len(t) > longest {
		longest = len(t)
	}

	if longest == 0 {
		return 0
	}

	return float64(smetrics.WagnerFischer(s, t, 1, 1, 1)) / float64(longest)
}

func commandNotFound(ctx *cli.Context, name string) {
	type suggestion struct {
		name  string
		score float64
	}

	suggestions := []suggestion{}
	for _, command := range ctx.App.Commands {
		if score := levenshtein(name, command.Name); score < 0.5 {
			suggestions = append(suggestions, suggestion{command.Name, score})
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].score < suggestions[j].score
	})

	fmt.Fprintf(ctx.App.ErrWriter, "%s: no such command", color.RedString(name))
	if len(suggestions) > 0 {
		fmt.Fprintf(ctx.App.ErrWriter, "; did you mean »%s«?", color.GreenString(suggestions[0].name))
	}

	fmt.Fprintln(ctx.App.ErrWriter)
}

func newApp(out, errOut io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "sniffcap"
	app.Usage = "Inspect and convert Sniffer (TRSNIFF) packet captures"
	app.Version = version.String()
	if version.BuildTime != "" {
		app.Version += fmt.Sprintf(" [buildtime: %s]", version.BuildTime)
	}

	app.Writer = out
	app.ErrWriter = errOut
	app.Metadata = map[string]interface{}{}
	app.CommandNotFound = commandNotFound
	app.Before = setup

	viewGroup := formatGroup("inspection")
	convGroup := formatGroup("conversion")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "Path of a config.yml; defaults are used without one",
			EnvVar: "SNIFFCAP_CONFIG",
		},
		cli.StringFlag{
			Name:  "log-level,L",
			Usage: "One of debug, info, warning or error; overrides log.level",
		},
		cli.StringFlag{
			Name:   "log-path,l",
			Usage:  "Where to output the log. May be 'stderr' (default), 'stdout' or a file",
			Value:  "stderr",
			EnvVar: "SNIFFCAP_LOG",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "Never print colors",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "info",
			Category:  viewGroup,
			Usage:     "Summarize a capture",
			ArgsUsage: "<capture>",
			Action:    withArgCheck(needAtLeast(1), handleInfo),
		}, {
			Name:      "dump",
			Category:  viewGroup,
			Usage:     "List the records of a capture",
			ArgsUsage: "<capture>",
			Action:    withArgCheck(needAtLeast(1), handleDump),
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "limit,n",
					Usage: "Stop after this many records (0 means all)",
				},
				cli.BoolFlag{
					Name:  "hex,x",
					Usage: "Print a hex dump of every record",
				},
				cli.BoolFlag{
					Name:  "decode,d",
					Usage: "Print the decoded protocol layers of every record",
				},
			},
		}, {
			Name:      "get",
			Category:  viewGroup,
			Usage:     "Read the record at an offset printed by dump",
			ArgsUsage: "<capture> <offset>",
			Action:    withArgCheck(needAtLeast(2), handleGet),
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "hex,x",
					Usage: "Print a hex dump of the record",
				},
			},
		}, {
			Name:      "convert",
			Category:  convGroup,
			Usage:     "Write the records of a capture into a new file",
			ArgsUsage: "<capture> <output>",
			Action:    withArgCheck(needAtLeast(2), handleConvert),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "format,f",
					Value: "pcap",
					Usage: "Output format: pcap, pcapng or ngsniffer",
				},
				cli.BoolFlag{
					Name:  "compress,z",
					Usage: "Compress ngsniffer output; overrides writer.compress",
				},
			},
		}, {
			Name:     "formats",
			Category: convGroup,
			Usage:    "List known capture formats",
			Action:   handleFormats,
		},
	}

	return app
}

// RunCmdline starts a sniffcap commandline tool.
func RunCmdline(args []string) int {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(args); err != nil {
		code := exitCodeFromError(err)
		log.Debugf("command failed: %+v", err)
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), code.Message)
		return code.Code
	}

	return Success
}
