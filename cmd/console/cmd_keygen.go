package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keygenCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a bearer token for the dev backend",
	Args:  cobra.NoArgs,
	RunE:  runKeygen,
}

func runKeygen(cmd *cobra.Command, args []string) error {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	key := "ck_" + hex.EncodeToString(raw)

	fmt.Printf("API Key: %s\n", key)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("console:\n  api_key: \"%s\"\n", key)
	fmt.Println("\nOr export it:")
	fmt.Printf("export CONSOLE_CONSOLE__API_KEY=%s\n", key)
	return nil
}
