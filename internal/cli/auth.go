package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
	Long: `Store and inspect the credentials used to talk to the source REST API
and to GitHub. Credentials live in a TOML file, by default at
~/.forgeport/auth.toml, overridable with --auth.`,
}

var authSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively enter API credentials",
	RunE:  runAuthSetup,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configured credentials with secrets masked",
	RunE:  runAuthShow,
}

func init() {
	authCmd.AddCommand(authSetupCmd)
	authCmd.AddCommand(authShowCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSetup(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Source API credentials")
	cmd.Println("----------------------")
	key, err := promptLine(cmd, reader, "API key", cfg.Assembla.Key)
	if err != nil {
		return err
	}
	cfg.Assembla.Key = key

	secret, err := promptSecret(cmd, reader, "API secret")
	if err != nil {
		return err
	}
	if secret != "" {
		cfg.Assembla.Secret = secret
	}

	cmd.Println()
	cmd.Println("GitHub credentials")
	cmd.Println("------------------")
	token, err := promptSecret(cmd, reader, "Access token")
	if err != nil {
		return err
	}
	if token != "" {
		cfg.GitHub.Token = token
	}

	if err := cfg.Save(path); err != nil {
		return err
	}
	cmd.Printf("\nCredentials written to %s\n", path)
	return nil
}

func runAuthShow(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	cmd.Printf("Auth file: %s\n\n", path)
	cmd.Printf("Source API key:    %s\n", maskSecret(cfg.Assembla.Key))
	cmd.Printf("Source API secret: %s\n", maskSecret(cfg.Assembla.Secret))
	cmd.Printf("GitHub token:      %s\n", maskSecret(cfg.GitHub.Token))
	return nil
}

// promptLine reads a line of input, keeping the current value when the
// user enters nothing.
func promptLine(cmd *cobra.Command, reader *bufio.Reader, label, current string) (string, error) {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, maskSecret(current))
	} else {
		cmd.Printf("%s: ", label)
	}
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return current, nil
	}
	return input, nil
}

// promptSecret reads a value without echoing when stdin is a terminal.
// An empty entry keeps the stored value.
func promptSecret(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	cmd.Printf("%s (leave empty to keep current): ", label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// maskSecret hides all but the first four characters of a credential.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
