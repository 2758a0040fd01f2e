package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/daemon"
	"github.com/ganbari-quest/ganbari/internal/infra/logging"
)

// openDaemon loads the config and opens the store with a quiet logger.
func openDaemon(opts *options) (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.NewConsole(logging.Options{Level: level}, os.Stderr)
	if err != nil {
		return nil, err
	}
	return daemon.Open(cfg, log)
}

// withDaemon opens the store, runs fn and closes it.
func withDaemon(opts *options, fn func(d *daemon.Daemon) error) error {
	d, err := openDaemon(opts)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

// emit prints v as JSON when --json is set, otherwise calls text.
func emit(cmd *cobra.Command, opts *options, v any, text func(w io.Writer) error) error {
	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(out)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
