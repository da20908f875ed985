package pv

import "io"

// Encryptor protects the remote document at rest.
// Encryption uses the public key only. Decryption needs the private key,
// which is unlocked with a passphrase for the duration of one command.
type Encryptor interface {
	// Setup performs one-time key generation. The private key is stored
	// encrypted under passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context that can
	// decrypt documents. Fails if the passphrase is wrong.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether keys exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
