package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/metcalfc/narrate/internal/config"
	"github.com/metcalfc/narrate/internal/document"
	"github.com/metcalfc/narrate/internal/outline"
	"github.com/metcalfc/narrate/internal/reader"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"backend":   "speech.backend",
	"rate":      "speech.rate",
	"wpm":       "speech.wpm",
	"timeout":   "interaction.timeout",
	"open":      "links.open",
	"log-file":  "log.file",
	"log-level": "log.level",
}

type cli struct {
	cfgFile   string
	render    bool
	autostart bool
	format    string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "narrate [file|url]",
		Short: "Read documents aloud with keyboard navigation",
		Long: `narrate reads an HTML page, EPUB, Markdown or text file aloud one element
at a time. Headings, paragraphs, images, links, form controls and tables are
announced in document order, and tables can be explored cell by cell.

Controls:
  SPACE      Start, or restart from the top
  P          Pause/resume
  ←/→        Slower/faster
  ↑/↓        Previous/next element
  ENTER      Interact with the link, control or table just read
  H/J/K/L    Move left/down/up/right inside a table
  ;          Report the table position
  ESC        Leave the table
  Q          Quit`,
		Example: `  narrate page.html
  narrate --rate 1.5 book.epub
  narrate --render https://example.com
  cat notes.txt | narrate`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
		RunE: c.runRead,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: ./narrate.yaml or ~/.config/narrate/narrate.yaml)")
	pf.BoolVar(&c.render, "render", false, "load URLs through headless Chrome so scripts run first")

	pf.String("backend", config.BackendSimulated, "speech backend: simulated, command or none")
	pf.Float64("rate", 1.0, "speech rate (0.25 to 4)")
	pf.Int("wpm", 180, "words per minute at rate 1")
	pf.Duration("timeout", reader.DefaultTimeout, "how long Enter is accepted after a link, control or table")
	pf.String("open", "", "command used to open followed links")
	pf.String("log-file", "", "write logs to this file")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	root.Flags().BoolVarP(&c.autostart, "autostart", "a", false, "start reading immediately")

	root.AddCommand(c.outlineCmd(), c.configCmd(), versionCmd())
	return root
}

// manager loads the configuration and applies any flags set on cmd.
func (c *cli) manager(cmd *cobra.Command) (*config.Manager, error) {
	mgr, err := config.NewManager(c.cfgFile)
	if err != nil {
		return nil, err
	}
	for name, key := range flagKeys {
		fl := cmd.Flags().Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		if err := mgr.Set(key, fl.Value.String()); err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
	}
	return mgr, nil
}

// load reads the document named by args, or the command's input when there
// is none.
func (c *cli) load(cmd *cobra.Command, args []string) (*html.Node, error) {
	if len(args) > 0 {
		return document.Open(cmd.Context(), args[0], c.render)
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return nil, errors.New("no input provided. Provide a file or URL, or pipe text to stdin")
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, errors.New("no text to read")
	}
	if strings.HasPrefix(text, "<") {
		return document.Parse(text)
	}
	return document.FromText(text)
}

func (c *cli) runRead(cmd *cobra.Command, args []string) error {
	mgr, err := c.manager(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(mgr.Get().Log, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	root, err := c.load(cmd, args)
	if err != nil {
		return err
	}

	s, err := newSession(mgr, logger, root)
	if err != nil {
		return err
	}
	logger.Info("session starting", "units", s.nav.Sequence().Len(), "config", mgr.File())
	return runHost(cmd.Context(), s, c.autostart)
}

func (c *cli) outlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outline [file|url]",
		Short: "Print the reading sequence of a document",
		Long: `Print every element narrate would read, in order, with its id, kind and
the text that would be spoken for it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := newLogger(config.LogConfig{Level: "warn"}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			root, err := c.load(cmd, args)
			if err != nil {
				return err
			}
			entries := outline.FromSequence(reader.Build(root))
			logger.Debug("outline built", "units", len(entries), "format", c.format)
			return outline.Write(cmd.OutOrStdout(), entries, c.format)
		},
	}
	cmd.Flags().StringVarP(&c.format, "output", "o", "text", "output format: "+strings.Join(outline.Formats, ", "))
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.manager(cmd)
			if err != nil {
				return err
			}
			if f := mgr.File(); f != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", f)
			}
			return config.WriteYAML(cmd.OutOrStdout(), mgr.Get())
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "narrate.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "narrate %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
