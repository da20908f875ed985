package app

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassphraseEnv overrides the terminal prompt, for scripts and cron jobs.
const PassphraseEnv = "PV_PASSPHRASE"

// PassphraseFunc returns the passphrase protecting the private key.
type PassphraseFunc func(prompt string) (string, error)

// ReadPassphrase returns $PV_PASSPHRASE when set, otherwise reads the
// passphrase from the terminal without echo.
func ReadPassphrase(prompt string) (string, error) {
	if p, ok := os.LookupEnv(PassphraseEnv); ok {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is not set and stdin is not a terminal", PassphraseEnv)
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// ReadNewPassphrase asks for a passphrase twice and fails if the entries differ.
// $PV_PASSPHRASE is taken as is.
func ReadNewPassphrase(read PassphraseFunc) (string, error) {
	if p, ok := os.LookupEnv(PassphraseEnv); ok {
		return p, nil
	}
	first, err := read("New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := read("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}
