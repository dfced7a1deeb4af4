package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the worker startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("JOBFINDER")
	b.PrintCenteredText("Automated Job Discovery Worker")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Environment", config.Environment, 15)
	b.PrintKeyValue("Admin URL", serviceURL, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", config.Environment).
		Str("admin_url", serviceURL).
		Msg("Worker started")

	fmt.Printf("Configuration:\n")
	fmt.Printf("   - Database: %s\n", config.Storage.SQLite.Path)
	fmt.Printf("   - Admin interface: %s\n", serviceURL)

	logFilePath := ""
	if loggerWithPath, ok := interface{}(logger).(interface{ GetLogFilePath() string }); ok {
		logFilePath = loggerWithPath.GetLogFilePath()
		if logFilePath != "" {
			fmt.Printf("   - Log File: %s\n", logFilePath)
		}
	}
	fmt.Printf("\n")

	logger.Info().
		Str("log_file", logFilePath).
		Str("sqlite_path", config.Storage.SQLite.Path).
		Strs("ai_providers", config.AI.Providers).
		Msg("Configuration loaded")

	printCapabilities(config, logger)
	fmt.Printf("\n")
}

// printCapabilities displays the worker's active capabilities.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Enabled capabilities:\n")
	fmt.Printf("   - Durable SQLite work queue\n")
	fmt.Printf("   - ATS/RSS/HTML scrape adapters with renderer fallback\n")
	fmt.Printf("   - Deterministic pre-filter and strike-based rejection\n")

	if len(config.AI.Providers) > 0 {
		fmt.Printf("   - LLM extraction/matching via: %v\n", config.AI.Providers)
	} else {
		fmt.Printf("   - No LLM providers configured\n")
	}

	if config.Recovery.FailureStrikeThreshold > 0 {
		fmt.Printf("   - Sources disabled after %d consecutive failures\n", config.Recovery.FailureStrikeThreshold)
	}

	logger.Info().
		Strs("ai_providers", config.AI.Providers).
		Int("failure_strike_threshold", config.Recovery.FailureStrikeThreshold).
		Msg("Worker capabilities")
}

// PrintShutdownBanner displays the shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("JOBFINDER")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("Worker shutting down")
}

// PrintColorizedMessage prints a message with the given color. It does not
// log; the Print* helpers below log the message themselves.
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints and logs a success message.
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints and logs an error message.
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints and logs a warning message.
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints and logs an info message.
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
