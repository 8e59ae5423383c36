package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/mark3labs/msgkit/internal/app"
	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/config"
	"github.com/mark3labs/msgkit/internal/message"
	"github.com/mark3labs/msgkit/internal/transport"
	"github.com/mark3labs/msgkit/internal/ui"
)

var (
	configFile  string
	baseURL     string
	token       string
	userID      string
	messagesArg string
	debugMode   bool
	logFile     string
	titleFlag   string

	// cfg is resolved once in PersistentPreRunE.
	cfg config.Config

	// logCloser closes the --log-file handle, if any.
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands.
// Without a subcommand it opens the interactive message board.
var rootCmd = &cobra.Command{
	Use:   "msgkit",
	Short: "Browse a message board and edit, delete or reply to messages",
	Long: `msgkit shows a list of messages and lets you edit, delete or reply to the
ones you are allowed to. Every change is confirmed in a dialog before it is
sent to the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Context())
	},
}

// GetRootCommand returns the root command with the version set. It is the
// entry point used by main.go.
func GetRootCommand(v string) *cobra.Command {
	rootCmd.Version = v
	return rootCmd
}

func init() {
	// RunE is assigned here rather than in the literal to break the
	// rootCmd -> runInteractive -> newApp -> rootCmd initialization cycle.
	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runInteractive(cmd.Context())
	}

	cobra.OnFinalize(closeLog)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./.msgkit.yml, then $HOME/.msgkit.yml)")
	flags.StringVar(&baseURL, config.KeyBaseURL, config.DefaultBaseURL, "base URL of the message board API")
	flags.StringVar(&token, config.KeyToken, "", "bearer token sent with every request")
	flags.StringVar(&userID, config.KeyUserID, "", "viewer id (default: read from the token claims)")
	flags.StringVarP(&messagesArg, config.KeyMessages, "m", "",
		"YAML file holding the message list; it is only read, so edits and replies sent to the API appear once the file is updated")
	flags.Duration(config.KeyTimeout, config.DefaultTimeout, "request timeout")
	flags.BoolVar(&debugMode, config.KeyDebug, false, "enable debug logging")
	flags.StringVar(&logFile, config.KeyLogFile, "", "write logs to this file")

	rootCmd.Flags().StringVar(&titleFlag, "title", "", "title shown above the list")

	for _, key := range []string{
		config.KeyBaseURL,
		config.KeyToken,
		config.KeyUserID,
		config.KeyMessages,
		config.KeyTimeout,
		config.KeyDebug,
		config.KeyLogFile,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(listCmd, editCmd, deleteCmd, replyCmd)
}

// setup resolves configuration and logging. It runs before every command.
func setup(_ context.Context) error {
	var err error
	cfg, err = config.Load(viper.GetViper(), configFile)
	if err != nil {
		return err
	}

	out, closer, err := logOutput(cfg)
	if err != nil {
		return err
	}
	logCloser = closer
	log.SetOutput(out)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}
	if cfg.File != "" {
		log.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// logOutput picks the log destination: --log-file when set, stderr with
// --debug, nothing otherwise.
func logOutput(c config.Config) (io.Writer, io.Closer, error) {
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, f, nil
	}
	if c.Debug {
		return os.Stderr, nil, nil
	}
	return io.Discard, nil, nil
}

// closeLog closes the --log-file handle. It runs after every command,
// including failed ones.
func closeLog() {
	if logCloser == nil {
		return
	}
	log.SetOutput(io.Discard)
	if err := logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
	logCloser = nil
}

// resolveViewer derives the viewer from the token. An explicit user id wins
// over the token claims.
func resolveViewer(c config.Config) (auth.Viewer, error) {
	viewer, err := auth.ViewerFromToken(c.Token)
	if err != nil && !errors.Is(err, auth.ErrNoIdentity) {
		return auth.Viewer{}, err
	}
	if c.UserID != "" {
		viewer.ID = c.UserID
	} else if errors.Is(err, auth.ErrNoIdentity) {
		log.Warn("token carries no user id, controls are hidden", "hint", "pass --user-id")
	}
	return viewer, nil
}

// newApp builds the App from the resolved configuration and loads the
// initial message list.
func newApp(ctx context.Context) (*app.App, error) {
	if cfg.Messages == "" {
		return nil, fmt.Errorf("no message list configured: pass --%s or set %s_MESSAGES", config.KeyMessages, config.EnvPrefix)
	}

	viewer, err := resolveViewer(cfg)
	if err != nil {
		return nil, err
	}

	client := transport.New(cfg.BaseURL,
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent("msgkit/"+rootCmd.Version),
	)

	appInstance := app.New(app.Options{
		Doer:   client,
		Source: message.FileSource{Path: cfg.Messages},
		Viewer: viewer,
	}, nil)

	if _, err := appInstance.Load(ctx); err != nil {
		appInstance.Close()
		return nil, err
	}
	log.Debug("app ready", "viewer", viewer.ID, "base_url", client.BaseURL(), "messages", len(appInstance.Messages()))
	return appInstance, nil
}

// runInteractive starts the Bubble Tea message board and blocks until the
// user quits.
func runInteractive(ctx context.Context) error {
	appInstance, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer appInstance.Close()

	// Determine terminal size; fall back gracefully.
	termWidth, termHeight, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth == 0 {
		termWidth = 80
		termHeight = 24
	}

	appModel := ui.NewAppModel(appInstance, ui.AppModelOptions{
		Title:  titleFlag,
		Width:  termWidth,
		Height: termHeight,
	})

	program := tea.NewProgram(appModel)

	// Register the program so settlements and reloads reach the TUI.
	appInstance.SetProgram(program)

	_, runErr := program.Run()
	if n := appInstance.InFlight(); n > 0 {
		log.Debug("cancelling unfinished requests", "count", n)
	}
	return runErr
}
