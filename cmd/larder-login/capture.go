package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/larder/internal/services/auth"
	"github.com/ternarybob/larder/internal/storage/filestore"
)

const (
	modeHandoff = "handoff"
	modeLocal   = "local"
)

var captureOpts struct {
	mode       string
	handoffURL string
	loginURL   string
	headless   bool
	chromePath string
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Open a browser, wait for login and deliver the session",
	Long: `Opens Chrome at the Amazon login page. Sign in (including any MFA), then press
Enter in this terminal. The cookies are read from the browser and either posted
to the server hand-off endpoint or written to the session file.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	flags := captureCmd.Flags()
	flags.StringVar(&captureOpts.mode, "mode", "", "Delivery mode: handoff or local (default from config)")
	flags.StringVar(&captureOpts.handoffURL, "handoff-url", "", "Server hand-off endpoint (default from config)")
	flags.StringVar(&captureOpts.loginURL, "login-url", "", "Page to open for login (default from config)")
	flags.BoolVar(&captureOpts.headless, "headless", false, "Run the browser headless (debugging only, no one can log in)")
	flags.StringVar(&captureOpts.chromePath, "chrome-path", "", "Chrome executable (default: auto-detect)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	applyCaptureOverrides()

	sink, err := newSink(config.Bridge.Mode)
	if err != nil {
		return err
	}

	extractor := auth.NewChromeExtractor(auth.ChromeConfig{
		LoginURL:   config.Bridge.LoginURL,
		ChromePath: config.Bridge.ChromePath,
		Headless:   config.Bridge.Headless,
	}, logger)
	confirmer := auth.NewConsoleConfirmer(os.Stdin, os.Stdout, auth.DefaultPrompt)

	options := auth.BridgeOptions{
		Observer: func(state auth.State, detail string) {
			if detail != "" {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", state, detail)
				return
			}
			fmt.Fprintf(os.Stderr, "[%s]\n", state)
		},
	}
	if sink.Remote() && config.Bridge.KeepLocalCopy {
		options.LocalCopy = filestore.NewSessionStorage(config.Bridge.LocalCopyPath, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := auth.NewBridge(extractor, confirmer, sink, options, logger)
	result, err := bridge.Run(ctx)
	printResult(result)
	return err
}

func applyCaptureOverrides() {
	if captureOpts.mode != "" {
		config.Bridge.Mode = captureOpts.mode
	}
	if captureOpts.handoffURL != "" {
		config.Bridge.HandoffURL = captureOpts.handoffURL
	}
	if captureOpts.loginURL != "" {
		config.Bridge.LoginURL = captureOpts.loginURL
	}
	if captureOpts.headless {
		config.Bridge.Headless = true
	}
	if captureOpts.chromePath != "" {
		config.Bridge.ChromePath = captureOpts.chromePath
	}
}

func newSink(mode string) (auth.SessionSink, error) {
	switch mode {
	case modeHandoff:
		if config.Bridge.HandoffURL == "" {
			return nil, fmt.Errorf("handoff mode needs bridge.handoff_url or --handoff-url")
		}
		return auth.NewHandoffSink(config.Bridge.HandoffURL, config.HandoffTimeout(), logger), nil
	case modeLocal:
		return auth.NewLocalSink(filestore.NewSessionStorage(config.Session.Path, logger), logger), nil
	default:
		return nil, fmt.Errorf("unknown mode %q: use %s or %s", mode, modeHandoff, modeLocal)
	}
}

func printResult(result *auth.BridgeResult) {
	if result == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "\nRun %s finished in state %s (%d cookies via %s)\n",
		result.RunID, result.State, result.CookieCount, result.Sink)
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", warning)
	}
	if result.LocalCopy != "" {
		fmt.Fprintf(os.Stderr, "  cookies kept at %s, retry with: larder-login push %s\n", result.LocalCopy, result.LocalCopy)
	}
}
