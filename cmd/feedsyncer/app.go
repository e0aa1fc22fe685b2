package main

import (
	"github.com/urfave/cli/v2"
)

func rootApp() *cli.App {
	return &cli.App{
		Name:  "feedsyncer",
		Usage: "Keep a catalog of RSS and Atom feeds up to date",
		Description: `Feedsyncer registers RSS and Atom feeds, stores their entries in
		PostgreSQL and polls every registered feed on a fixed interval, adding
		only entries whose links it has not seen before.

		The config file is YAML unless its name ends in .toml. Values may
		reference environment variables as ${NAME}; a .env file in the working
		directory is loaded first.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				EnvVars: []string{"FEEDSYNCER_CONFIG"},
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			feedCmd(),
			entryCmd(),
			categoryCmd(),
		},
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}
}
