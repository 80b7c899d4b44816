package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// VersionCommand prints the build version.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the redline version",
		Action: func(c *cli.Context) error {
			fmt.Printf("redline %s\n", c.App.Version)
			return nil
		},
	}
}
