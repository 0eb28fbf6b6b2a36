package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the effective settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Larder", GetVersion())

	fmt.Printf("  upstream : %s\n", config.Upstream.BaseURL)
	fmt.Printf("  session  : %s\n", config.Session.Path)
	fmt.Printf("  listening: http://%s:%d\n", config.Server.Host, config.Server.Port)
	if config.Monitor.Enabled {
		fmt.Printf("  monitor  : every %s\n", config.MonitorInterval())
	} else {
		fmt.Printf("  monitor  : disabled\n")
	}
	fmt.Println()

	logger.Info().
		Str("version", GetFullVersion()).
		Str("upstream", config.Upstream.BaseURL).
		Str("session_path", config.Session.Path).
		Msg("Larder starting")
}
