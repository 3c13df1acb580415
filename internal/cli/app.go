package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/plume/internal/config"
	"github.com/roach88/plume/internal/remote"
	"github.com/roach88/plume/internal/store"
	"github.com/roach88/plume/internal/vfs"
)

// defaultConfigFile is consulted when --config is not given.
const defaultConfigFile = "plume.yaml"

// app wires a command invocation: config, index, adapter, filesystem.
type app struct {
	cfg *config.Config
	fs  *vfs.FS
	out *Formatter

	store *store.Store

	// mock state round-trips through a file so mock mode behaves like
	// a persistent host across invocations.
	mock      *remote.Mock
	mockState string
}

// openApp builds the environment for one command. The caller must
// Close it; Close persists mock state and releases the index.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	out := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, out.Fail(ExitCommandError, err)
	}

	s, err := store.Open(cfg.Index)
	if err != nil {
		return nil, out.Fail(ExitCommandError, err)
	}

	a := &app{cfg: cfg, out: out, store: s}

	var adapter remote.Adapter
	if opts.Mock || cfg.Remote.Mode == config.ModeMock {
		mock := remote.NewMock()
		mock.SetAuthor(cfg.Author)
		a.mock = mock
		a.mockState = cfg.Index + ".posts"
		if err := mock.LoadFile(a.mockState); err != nil {
			s.Close()
			return nil, out.Fail(ExitCommandError, err)
		}
		adapter = mock
	} else {
		adapter, err = cfg.Adapter()
		if err != nil {
			s.Close()
			return nil, out.Fail(ExitCommandError, err)
		}
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	fs, err := vfs.New(vfs.Options{
		Store:        s,
		Adapter:      adapter,
		Author:       cfg.Author,
		MaxSegment:   cfg.Write.MaxSegment,
		MaxWriteSize: cfg.Write.MaxSize,
		Logger:       logger,
	})
	if err != nil {
		s.Close()
		return nil, out.Fail(ExitCommandError, err)
	}
	a.fs = fs
	return a, nil
}

func (a *app) Close() error {
	if a.mock != nil {
		if err := a.mock.SaveFile(a.mockState); err != nil {
			a.store.Close()
			return err
		}
	}
	return a.store.Close()
}

// runWithApp opens the environment, runs fn, and always closes,
// surfacing a close failure only when fn itself succeeded.
func runWithApp(cmd *cobra.Command, opts *RootOptions, fn func(*app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if closeErr := a.Close(); closeErr != nil && runErr == nil {
		runErr = a.out.Fail(ExitCommandError, closeErr)
	}
	return runErr
}

// loadConfig resolves the effective configuration: an explicit
// --config path must load; the default file is used when present;
// otherwise built-in defaults apply.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return config.Load(defaultConfigFile)
	}
	return config.Default(), nil
}

// readInput returns the write payload: the named file, or stdin when
// the argument is absent or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 1 && args[1] != "-" {
		return os.ReadFile(args[1])
	}
	return io.ReadAll(cmd.InOrStdin())
}
