package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/bedrockchat/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Bedrockchat Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Agent runtime base URL
		cfg.Agent.BaseURL = prompt(scanner, "Agent runtime base URL", cfg.Agent.BaseURL)

		// 2. API key
		cfg.Agent.APIKey = prompt(scanner, "Agent runtime API key", cfg.Agent.APIKey)

		// 3. Agent id and alias
		cfg.Agent.ID = prompt(scanner, "Agent ID", cfg.Agent.ID)
		cfg.Agent.AliasID = prompt(scanner, "Agent alias ID", cfg.Agent.AliasID)

		// 4. Prompt budget
		maxInputStr := prompt(scanner, "Max input tokens (0 disables the check)", strconv.Itoa(cfg.Agent.MaxInputTokens))
		if n, err := strconv.Atoi(maxInputStr); err == nil {
			cfg.Agent.MaxInputTokens = n
		}

		// 5. Telegram bot token (optional)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
