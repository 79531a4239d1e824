// Command ingest-key generates the bcrypt hash for the telemetry collector
// ingest key. Put the printed hash in TELEMETRY_INGEST_KEY_HASH and hand
// the plaintext key to the player clients.
package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	fmt.Print("Ingest key: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read key: %v\n", err)
		os.Exit(1)
	}

	if len(key) < 16 {
		fmt.Fprintln(os.Stderr, "ingest key must be at least 16 characters")
		os.Exit(1)
	}

	fmt.Print("Confirm key: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read confirmation: %v\n", err)
		os.Exit(1)
	}

	if string(key) != string(confirm) {
		fmt.Fprintln(os.Stderr, "keys do not match")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword(key, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("TELEMETRY_INGEST_KEY_HASH=%s\n", hash)
}
