// Package file writes issued bundles as PEM files.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmcleod/certgen/pki"
)

// File extensions for the three artifacts of a bundle.
const (
	ExtRequest     = ".csr"
	ExtPrivateKey  = ".pkey"
	ExtCertificate = ".cert"
)

// File modes. Private keys are readable by the owner only.
const (
	publicFileMode  os.FileMode = 0o644
	privateFileMode os.FileMode = 0o600
)

// Writer persists bundles under a directory that must already exist.
type Writer struct {
	dir string
}

// Compile-time interface check.
var _ pki.BundleWriter = (*Writer)(nil)

// NewWriter returns a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the target directory.
func (w *Writer) Dir() string { return w.dir }

// Paths returns the request, private key and certificate paths for baseName.
func (w *Writer) Paths(baseName string) (csr, key, cert string) {
	base := filepath.Join(w.dir, baseName)
	return base + ExtRequest, base + ExtPrivateKey, base + ExtCertificate
}

// Write stores b as {base}.csr, {base}.pkey and {base}.cert. The private key
// PEM is held in a LockedBuffer and destroyed once written.
func (w *Writer) Write(ctx context.Context, b *pki.Bundle) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", pki.ErrPersistenceFailure, err)
	}
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", pki.ErrPersistenceFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", pki.ErrPersistenceFailure, w.dir)
	}

	csrPath, keyPath, certPath := w.Paths(b.BaseName)

	if err := writeFile(csrPath, b.RequestPEM(), publicFileMode); err != nil {
		return err
	}

	keyBuf, err := b.KeyPEM()
	if err != nil {
		return err
	}
	defer keyBuf.Destroy()
	if err := writeFile(keyPath, keyBuf.Bytes(), privateFileMode); err != nil {
		return err
	}

	return writeFile(certPath, b.CertificatePEM(), publicFileMode)
}

// writeFile writes data to path, replacing any existing file. The mode is
// enforced even when the file already existed with wider permissions.
func writeFile(path string, data []byte, mode os.FileMode) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: nothing to write to %s", pki.ErrSerializationFailure, path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: %v", pki.ErrPersistenceFailure, err)
	}
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", pki.ErrPersistenceFailure, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing %s: %v", pki.ErrPersistenceFailure, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", pki.ErrPersistenceFailure, path, err)
	}
	return nil
}
