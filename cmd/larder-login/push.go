package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/session"
)

var pushOpts struct {
	handoffURL string
}

var pushCmd = &cobra.Command{
	Use:   "push [cookie-file]",
	Short: "Re-send a saved cookie file to the server",
	Long: `Sends a cookie file in the transport format to the server hand-off endpoint.
Use this after a capture whose hand-off failed; the file defaults to bridge.local_copy_path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushOpts.handoffURL, "handoff-url", "", "Server hand-off endpoint (default from config)")
}

func runPush(cmd *cobra.Command, args []string) error {
	path := config.Bridge.LocalCopyPath
	if len(args) == 1 {
		path = args[0]
	}
	if pushOpts.handoffURL != "" {
		config.Bridge.HandoffURL = pushOpts.handoffURL
	}

	cookies, err := readCookieFile(path)
	if err != nil {
		return err
	}

	sink, err := newSink(modeHandoff)
	if err != nil {
		return err
	}
	if err := sink.Deliver(cmd.Context(), cookies); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Sent %d cookies from %s to %s\n", len(cookies), path, config.Bridge.HandoffURL)
	return nil
}

func readCookieFile(path string) ([]models.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cookies, warnings, err := session.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, warning := range warnings {
		logger.Warn().Str("path", path).Str("warning", warning).Msg("Cookie record dropped")
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%s: %w", path, models.ErrExtractionFailed)
	}
	return cookies, nil
}
