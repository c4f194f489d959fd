package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/biologyguy/tattle/pkg/crypt"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Inspect the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Don't leak credentials into terminals or CI logs.
		masked := *cfg
		masked.Reporters.GitHub.Token = maskSecret(cfg.Reporters.GitHub.Token)
		masked.Reporters.FTP.Password = maskSecret(cfg.Reporters.FTP.Password)
		masked.Reporters.Mail.Password = maskSecret(cfg.Reporters.Mail.Password)

		encoded, err := json.MarshalIndent(masked, "", "  ")
		if err != nil {
			return eris.Wrap(err, "Failed to serialize configuration")
		}

		fmt.Println(string(encoded))
		return nil
	},
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}

	return "<set>"
}

func newCrypter() (*crypt.Crypter, error) {
	dir, err := settingsDir()
	if err != nil {
		return nil, err
	}

	return crypt.NewFileCrypter(filepath.Join(dir, "salt"))
}

func getPassphrase(cmd *cobra.Command) (string, error) {
	passphrase, err := cmd.Flags().GetString("passphrase")
	if err != nil {
		return "", err
	}

	if passphrase == "" {
		passphrase = os.Getenv("TATTLE_PASSPHRASE")
	}

	if passphrase == "" {
		return "", eris.New("No passphrase given. Pass --passphrase or set TATTLE_PASSPHRASE.")
	}

	return passphrase, nil
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a secret read from stdin for use in tattle.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := getPassphrase(cmd)
		if err != nil {
			return err
		}

		crypter, err := newCrypter()
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		secret, err := reader.ReadString('\n')
		if err != nil && secret == "" {
			return eris.Wrap(err, "Failed to read secret from stdin")
		}

		encrypted, err := crypter.Encrypt([]byte(strings.TrimRight(secret, "\r\n")), passphrase)
		if err != nil {
			return err
		}

		fmt.Println(base64.StdEncoding.EncodeToString(encrypted))
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <value>",
	Short: "Decrypt a secret produced by the encrypt command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := getPassphrase(cmd)
		if err != nil {
			return err
		}

		crypter, err := newCrypter()
		if err != nil {
			return err
		}

		encrypted, err := base64.StdEncoding.DecodeString(args[0])
		if err != nil {
			return eris.Wrap(err, "The given value is not valid base64")
		}

		secret, err := crypter.Decrypt(encrypted, passphrase)
		if err != nil {
			return err
		}

		fmt.Println(string(secret))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{encryptCmd, decryptCmd} {
		cmd.Flags().String("passphrase", "", "passphrase protecting the secret")
		configureCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(configureCmd)
}
