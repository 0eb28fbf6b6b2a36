package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternarybob/larder/internal/services/session"
)

var migrateOpts struct {
	out  string
	push bool
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <pickle-file>",
	Short: "Convert a legacy pickled cookie file to the session format",
	Long: `Reads a cookie list written by the older Python login helper (pickle protocol 2-4)
and writes it as a session file. With --push the cookies are sent to the server
hand-off endpoint instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	flags := migrateCmd.Flags()
	flags.StringVar(&migrateOpts.out, "out", "", "Session file to write (default session.path)")
	flags.BoolVar(&migrateOpts.push, "push", false, "Send to the hand-off endpoint instead of writing a file")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	cookies, err := session.DecodeLegacyPickle(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	cookies, warnings := session.Normalize(cookies)
	for _, warning := range warnings {
		logger.Warn().Str("path", args[0]).Str("warning", warning).Msg("Cookie record dropped")
	}

	mode := modeLocal
	if migrateOpts.push {
		mode = modeHandoff
	} else if migrateOpts.out != "" {
		config.Session.Path = migrateOpts.out
	}

	sink, err := newSink(mode)
	if err != nil {
		return err
	}
	if err := sink.Deliver(cmd.Context(), cookies); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Migrated %d cookies from %s to %s\n", len(cookies), args[0], sink.Name())
	return nil
}
