package main

import "github.com/urfave/cli/v3"

var (
	schemaPath string
	strict     bool
	logLevel   string
	logFormat  string
	debug      bool
)

func commonFileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "schemas",
			Aliases:     []string{"s"},
			Usage:       "controller schema catalogue file or directory (env " + envDatkitSchemaDir + ")",
			Destination: &schemaPath,
		},
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "fail on EOF payload bytes and data after the EOF chunk",
			Destination: &strict,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, plain, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
