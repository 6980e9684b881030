/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tgblog/apiserver/internal/auth"
	"golang.org/x/term"
)

var hashpwCost int

// hashpwCmd represents the hashpw command
var hashpwCmd = &cobra.Command{
	Use:   "hashpw",
	Short: "Print a bcrypt digest for ADMIN_PASSWORD_HASH",
	Long: `Prompts for a password without echo and prints its bcrypt digest.
When stdin is not a terminal the first line of stdin is used. Usage:

	blogapi hashpw
	echo -n secret | blogapi hashpw
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		digest, err := auth.NewHasher(hashpwCost).Hash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), digest)
		return nil
	},
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func init() {
	rootCmd.AddCommand(hashpwCmd)
	hashpwCmd.Flags().IntVar(&hashpwCost, "cost", 0, "bcrypt cost (0 uses the default)")
}
