// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"snowdemo/cli/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Manage the private key passphrase stored in the OS keychain",
	Long: `The key-pair login reads the private key passphrase from
SNOWFLAKE_PRIVATE_KEY_PASSPHRASE, or from the OS keychain when that variable is
unset. The keychain entry is only applied to encrypted keys. These commands
manage it.`,
}

var passphraseSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the passphrase in the keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return fmt.Errorf("keychain unavailable: %w", err)
		}
		secret, err := readSecret("Private key passphrase: ")
		if err != nil {
			return err
		}
		if secret == "" {
			return errors.New("empty passphrase; use `snowdemo passphrase clear` to remove the stored one")
		}
		if err := km.SavePassphrase(secret); err != nil {
			return fmt.Errorf("save passphrase: %w", err)
		}
		pterm.Success.Println("Passphrase saved to the keychain.")
		return nil
	},
}

var passphraseClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return fmt.Errorf("keychain unavailable: %w", err)
		}
		if err := km.ClearPassphrase(); err != nil {
			return fmt.Errorf("clear passphrase: %w", err)
		}
		pterm.Success.Println("Passphrase removed.")
		return nil
	},
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func init() {
	passphraseCmd.AddCommand(passphraseSetCmd, passphraseClearCmd)
	rootCmd.AddCommand(passphraseCmd)
}
