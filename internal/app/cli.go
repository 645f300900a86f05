package app

import (
	"github.com/urfave/cli/v2"

	"github.com/gdfetch/gdfetch/internal/config"
)

// newApp creates the help document and flags of r.mode.
func newApp(r *runner) *cli.App {
	a := cli.NewApp()
	a.Name = r.mode.appName()
	a.Version = version
	a.Reader = r.stdin
	a.Writer = r.stdout
	a.HideHelpCommand = true
	a.Action = r.handler

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "id",
			Aliases: []string{"i"},
			Usage:   "Id or URL of the file on Google Drive. When it is not given, ids are read from stdin one per line until EOF or 'end'.",
		},
		&cli.StringFlag{
			Name:    "save-dir",
			Aliases: []string{"d"},
			Usage:   "Directory for saving downloaded files. When this is not used, the files are saved to the current working directory.",
		},
		&cli.StringFlag{
			Name:    "credentials",
			Aliases: []string{"c"},
			Usage:   "OAuth client secret file downloaded from the Google Cloud console. (default: credentials.json)",
		},
		&cli.StringFlag{
			Name:    "apikey",
			Aliases: []string{"key"},
			Usage:   "API key. It is used instead of the credentials file and can only download publicly shared items.",
			EnvVars: []string{config.EnvPrefix + "_APIKEY"},
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML configuration file. (default: $" + config.EnvPrefix + "_CONFIG or ~/.config/gdfetch.yaml)",
		},
		&cli.StringFlag{
			Name:  "chunk-size",
			Usage: "Size of one ranged request, e.g. '50m', '1g' or a number of bytes. (default: 50m)",
		},
		&cli.IntFlag{
			Name:    "retries",
			Aliases: []string{"r"},
			Usage:   "Number of attempts per file. Every attempt restarts the file from its first byte. (default: 10)",
		},
		&cli.DurationFlag{
			Name:  "retry-wait",
			Usage: "Fixed wait between attempts. (default: 2s)",
		},
		&cli.BoolFlag{
			Name:    "skip-existing",
			Aliases: []string{"s"},
			Usage:   "When a file with the same name exists in the local directory, skip it. At default, it is overwritten.",
		},
		&cli.BoolFlag{
			Name:    "no-progress",
			Aliases: []string{"np"},
			Usage:   "When this option is used, the progression is not shown.",
		},
		&cli.BoolFlag{
			Name:  "info",
			Usage: "Show the metadata as JSON instead of downloading.",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error. (default: info)",
		},
	}

	switch r.mode {
	case FolderMode:
		a.Usage = "Download a folder of Google Drive with all of its sub-folders."
		flags[0].(*cli.StringFlag).Usage = "Id or URL of the folder on Google Drive. When it is not given, ids are read from stdin one per line until EOF or 'end'."
		flags = append(flags,
			&cli.IntFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "Number of files of one folder downloaded at the same time. (default: 1)",
			},
			&cli.BoolFlag{
				Name:  "rename-duplicates",
				Usage: "Save entries whose name is already used in the same folder as 'name_2.ext', 'name_3.ext', ... At default, the later one overwrites the earlier one.",
			},
		)
	default:
		a.Usage = "Download a file of Google Drive in chunks, retrying from the start on failure."
	}
	a.Flags = flags
	return a
}
