package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/storage"
)

type configKey struct{}

// prompt reads one line from the command's input. On a terminal msg is
// written to stderr first, and mask turns off echo.
func prompt(cmd *cobra.Command, msg string, mask bool) ([]byte, error) {
	in := cmd.InOrStdin()
	file, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return readLine(in)
	}
	if _, err := io.WriteString(cmd.ErrOrStderr(), msg); err != nil {
		return nil, err
	}
	if !mask {
		return readLine(file)
	}
	defer func() { _, _ = io.WriteString(cmd.ErrOrStderr(), "\n") }()
	return term.ReadPassword(int(file.Fd()))
}

// readLine reads up to the next newline one byte at a time, so input after
// the line stays unread for the next prompt.
func readLine(src io.Reader) ([]byte, error) {
	var buf [1]byte
	var line []byte
	for {
		n, err := src.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				return bytes.TrimSuffix(line, []byte{'\r'}), nil
			}
			line = append(line, buf[0])
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return bytes.TrimSuffix(line, []byte{'\r'}), nil
			}
			return line, err
		}
	}
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-dev"
	}
	ver := "unknown"
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			ver = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if dirty {
		ver += "-dev"
	}
	return ver
}

func loadConfig(ctx context.Context) (*config.Config, *slog.Logger, storage.Store, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		return nil, nil, nil, errors.New("config file resolution failed")
	}
	logger := slog.Default()
	store, err := storage.NewDB(ctx, cfg.DBFilepath, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, store, nil
}
