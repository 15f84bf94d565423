package main

import (
	"os"

	"github.com/sahib/sniffcap/cmd"
)

func main() {
	os.Exit(cmd.RunCmdline(os.Args))
}
