package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/aretw0/synthex/internal/config"
	"github.com/aretw0/synthex/internal/logging"
	"github.com/aretw0/synthex/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger builds the application logger from the configuration.
// debug forces the debug level.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return logging.NewFromConfig(cfg.Log.Format, level)
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// ErrNoInput is returned when no procedure text source is available.
var ErrNoInput = errors.New("no procedure text: pass it as an argument, with --file, or on stdin")

// ReadProcedure picks the procedure text from, in order: the arguments,
// the file ("-" means stdin), or stdin when it is not a terminal.
// The text is returned unmodified.
func ReadProcedure(args []string, file string, stdin io.Reader, stdinIsTerminal bool) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file == "-":
		return readAll(stdin)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read procedure file: %w", err)
		}
		return string(data), nil
	case !stdinIsTerminal && stdin != nil:
		return readAll(stdin)
	default:
		return "", ErrNoInput
	}
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PromptCredential reads an API key from the terminal without echo.
func PromptCredential(in *os.File, out io.Writer) (domain.Credential, error) {
	if !IsTerminal(in) {
		return "", errors.New("--prompt-key requires an interactive terminal")
	}
	fmt.Fprint(out, "IBM RXN API key: ")
	key, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return domain.Credential(strings.TrimSpace(string(key))), nil
}
