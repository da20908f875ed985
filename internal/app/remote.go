package app

import (
	"context"
	"fmt"

	"pv-go/internal/config"
	"pv-go/internal/mirror"
	"pv-go/internal/pv"
)

// remoteMirror opens the configured backend on first use, so commands that
// never reach the remote neither dial out nor ask for a passphrase.
type remoteMirror struct {
	cfg        config.RemoteConfig
	encryptor  pv.Encryptor
	passphrase PassphraseFunc
	clock      pv.Clock
	logger     pv.Logger

	// onGistCreated is called once a push created a new gist.
	onGistCreated func(id string)

	doc *mirror.DocumentMirror
}

var _ pv.Mirror = (*remoteMirror)(nil)

func (r *remoteMirror) open(ctx context.Context) (*mirror.DocumentMirror, error) {
	if r.doc != nil {
		return r.doc, nil
	}

	blob, err := mirror.NewBlobFromConfig(ctx, r.cfg, r.clock)
	if err != nil {
		return nil, fmt.Errorf("creating %s remote: %w", r.cfg.Type, err)
	}

	opts := []mirror.Option{mirror.WithLogger(r.logger)}
	if r.encryptor != nil {
		if !r.encryptor.IsConfigured() {
			return nil, fmt.Errorf("encryption keys not found, run 'pv keys init'")
		}
		pass, err := r.passphrase("Passphrase: ")
		if err != nil {
			return nil, err
		}
		dc, err := r.encryptor.Unlock(pass)
		if err != nil {
			return nil, fmt.Errorf("unlocking private key: %w", err)
		}
		opts = append(opts, mirror.WithEncryption(r.encryptor, dc))
	}

	r.doc = mirror.NewDocumentMirror(blob, opts...)
	r.logger.Debug("remote opened", "remote", blob.Describe())
	return r.doc, nil
}

func (r *remoteMirror) Fetch(ctx context.Context) (*pv.RemoteDocument, error) {
	doc, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Fetch(ctx)
}

func (r *remoteMirror) Replace(ctx context.Context, snap *pv.Snapshot, ifRevision string) (string, error) {
	doc, err := r.open(ctx)
	if err != nil {
		return "", err
	}
	rev, err := doc.Replace(ctx, snap, ifRevision)
	if err != nil {
		return "", err
	}

	if g, ok := doc.Blob().(*mirror.GistBlob); ok && r.cfg.GistID == "" && g.GistID() != "" {
		r.cfg.GistID = g.GistID()
		if r.onGistCreated != nil {
			r.onGistCreated(g.GistID())
		}
	}
	return rev, nil
}

// Describe names the remote without opening it.
func (r *remoteMirror) Describe() string {
	if r.doc != nil {
		return r.doc.Blob().Describe()
	}
	return r.cfg.Type
}

func (r *remoteMirror) Close() error {
	if r.doc == nil {
		return nil
	}
	return r.doc.Close()
}
