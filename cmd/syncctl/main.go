package main

import (
	"os"

	"academic-mesh/backend/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		formatter := &cli.OutputFormatter{Format: root.PersistentFlags().Lookup("format").Value.String(), Writer: os.Stderr}
		formatter.Failure(err)
		os.Exit(cli.GetExitCode(err))
	}
}
