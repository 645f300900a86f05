// Package app holds the command line front end shared by gdfetch-file and
// gdfetch-folder.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/gdfetch/gdfetch/internal/config"
	"github.com/gdfetch/gdfetch/internal/gdrive"
	"github.com/gdfetch/gdfetch/internal/logging"
	"github.com/gdfetch/gdfetch/internal/progress"
	"github.com/gdfetch/gdfetch/internal/remote"
)

const version = "0.3.0"

// Mode selects what an id refers to.
type Mode int

const (
	FileMode Mode = iota
	FolderMode
)

func (m Mode) appName() string {
	if m == FolderMode {
		return "gdfetch-folder"
	}
	return "gdfetch-file"
}

// service is what the app needs from an authenticated Drive session.
type service interface {
	remote.Service
	ShowFileInfo(ctx context.Context, w io.Writer, id string) error
	ShowFolderInfo(w io.Writer, folderID string) error
}

// runner holds everything the handler touches outside of its arguments.
type runner struct {
	mode   Mode
	stdin  io.Reader
	stdout io.Writer
	fs     afero.Fs
	// stdinIsTerminal decides between --id and reading ids from stdin.
	stdinIsTerminal func() bool
	// progressMode picks the rendering of transfer progress.
	progressMode func(noProgress bool) progress.Mode
	connect      func(ctx context.Context, cfg *config.Config) (service, error)
}

// New creates the command line application of mode.
func New(mode Mode) *cli.App {
	return newApp(&runner{
		mode:   mode,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		fs:     afero.NewOsFs(),
		stdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		progressMode: func(noProgress bool) progress.Mode {
			switch {
			case noProgress:
				return progress.Quiet
			case term.IsTerminal(int(os.Stdout.Fd())):
				return progress.Bar
			}
			return progress.Text
		},
		connect: connectDrive,
	})
}

func connectDrive(ctx context.Context, cfg *config.Config) (service, error) {
	hc := gdrive.NewHTTPClient(gdrive.WithRetryMax(cfg.HTTPRetries))
	client, err := gdrive.Connect(ctx, gdrive.Auth{
		CredentialsFile: cfg.Credentials,
		APIKey:          cfg.APIKey,
		RedirectPort:    cfg.RedirectPort,
	}, hc)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// SignalContext returns a context cancelled by SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logging.Warn("received signal, stopping", logging.String("signal", sig.String()))
		cancel()
	}()

	return ctx
}

// handler loads the configuration, connects and downloads every given id.
func (r *runner) handler(c *cli.Context) error {
	cfg, err := r.loadConfig(c)
	if err != nil {
		return cli.Exit(err, 2)
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return cli.Exit(err, 2)
	}
	defer logging.Sync()

	var ids []string
	switch {
	case c.IsSet("id"):
		ids = []string{c.String("id")}
	case r.stdinIsTerminal():
		return cli.ShowAppHelp(c)
	default:
		if ids, err = readIDs(r.stdin); err != nil {
			return cli.Exit(fmt.Errorf("%w. Please check help\n\n $ %s --help", err, r.mode.appName()), 2)
		}
	}

	saveDir := c.String("save-dir")
	if saveDir == "" {
		if saveDir, err = filepath.Abs("."); err != nil {
			return err
		}
	}

	ctx := c.Context
	svc, err := r.connect(ctx, cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}

	console := progress.NewConsole(r.stdout, r.progressMode(c.Bool("no-progress")))
	dl := NewDownloader(svc, r.fs, cfg, console)

	failed := 0
	for _, raw := range ids {
		if ctx.Err() != nil {
			failed++
			continue
		}
		id, err := parseID(raw)
		if err != nil {
			if len(ids) == 1 {
				return cli.Exit(err, 2)
			}
			fmt.Fprintf(r.stdout, "## Skipped: Error: %v\n", err)
			failed++
			continue
		}
		if err := r.process(ctx, c, svc, dl, console, id, saveDir); err != nil {
			logging.Debug("id failed", logging.String("id", id), logging.Err(err))
			failed++
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d ids failed", failed, len(ids)), 1)
	}
	return nil
}

// process handles one id and reports anything the console has not shown.
func (r *runner) process(ctx context.Context, c *cli.Context, svc service, dl *Downloader, console *progress.Console, id, saveDir string) error {
	if c.Bool("info") {
		var err error
		if r.mode == FolderMode {
			err = svc.ShowFolderInfo(r.stdout, id)
		} else {
			err = svc.ShowFileInfo(ctx, r.stdout, id)
		}
		if err != nil {
			fmt.Fprintf(r.stdout, "## Error: %v\n", err)
		}
		return err
	}

	if r.mode == FolderMode {
		rep, err := dl.FetchFolder(ctx, id, saveDir)
		if rep != nil {
			console.Summary(rep)
		} else if err != nil {
			fmt.Fprintf(r.stdout, "## Error: %v\n", err)
		}
		return err
	}

	res, err := dl.FetchFile(ctx, id, saveDir)
	if res == nil && err != nil {
		fmt.Fprintf(r.stdout, "## Error: %v\n", err)
	}
	return err
}

// loadConfig applies defaults, then the config file and environment, then flags.
func (r *runner) loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("credentials") {
		cfg.Credentials = c.String("credentials")
	}
	if c.IsSet("apikey") {
		cfg.APIKey = c.String("apikey")
	}
	if c.IsSet("chunk-size") {
		size, err := config.ParseSize(c.String("chunk-size"))
		if err != nil {
			return nil, fmt.Errorf("--chunk-size: %w", err)
		}
		cfg.ChunkSize = size
	}
	if c.IsSet("retries") {
		cfg.MaxRetries = c.Int("retries")
	}
	if c.IsSet("retry-wait") {
		cfg.RetryWait = c.Duration("retry-wait")
	}
	if c.IsSet("parallel") {
		cfg.Parallel = c.Int("parallel")
	}
	if c.IsSet("rename-duplicates") {
		cfg.RenameDuplicates = c.Bool("rename-duplicates")
	}
	if c.IsSet("skip-existing") {
		cfg.SkipExisting = c.Bool("skip-existing")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
