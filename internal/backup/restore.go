package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/HerbHall/havenwatch/internal/version"
)

var (
	// ErrInvalidBackup is returned for archives without a usable manifest.
	ErrInvalidBackup = errors.New("invalid backup")
	// ErrNewerBackup is returned when the archive was written by a newer
	// HavenWatch than the running binary.
	ErrNewerBackup = errors.New("backup was created by a newer version")
)

// maxManifestSize bounds the manifest read from an archive.
const maxManifestSize = 1 << 20

// Restore extracts the database and config named by the archive manifest
// into targetDir. It refuses to overwrite existing files unless force is
// true, and refuses archives written by a newer version.
func Restore(ctx context.Context, archivePath, targetDir string, force bool) (*Manifest, error) {
	m, err := readManifest(archivePath)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(m.Version, version.Short()); err != nil {
		return nil, err
	}

	wanted := map[string]bool{m.Database: true}
	if m.Config != "" {
		wanted[m.Config] = true
	}
	if !force {
		for name := range wanted {
			dest := filepath.Join(targetDir, name)
			if _, err := os.Stat(dest); err == nil {
				return nil, fmt.Errorf("file already exists (use -force to overwrite): %s", dest)
			}
		}
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating target directory: %w", err)
	}

	err = walkArchive(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !wanted[hdr.Name] || hdr.Typeflag != tar.TypeReg {
			return nil
		}
		delete(wanted, hdr.Name)
		if err := extractFile(r, filepath.Join(targetDir, hdr.Name)); err != nil {
			return fmt.Errorf("extracting %s: %w", hdr.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(wanted) > 0 {
		return nil, fmt.Errorf("%w: manifest lists files missing from the archive", ErrInvalidBackup)
	}
	return m, nil
}

// readManifest scans the archive, rejecting unsafe entry names, and
// returns the validated manifest.
func readManifest(archivePath string) (*Manifest, error) {
	var m *Manifest
	err := walkArchive(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Name != ManifestName {
			return nil
		}
		m = &Manifest{}
		if err := json.NewDecoder(io.LimitReader(r, maxManifestSize)).Decode(m); err != nil {
			return fmt.Errorf("%w: decoding manifest: %v", ErrInvalidBackup, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: archive has no %s", ErrInvalidBackup, ManifestName)
	}
	if m.Database == "" {
		return nil, fmt.Errorf("%w: manifest names no database", ErrInvalidBackup)
	}
	for _, name := range []string{m.Database, m.Config} {
		if name != "" && (name != filepath.Base(name) || name == ".." || name == ManifestName) {
			return nil, fmt.Errorf("%w: manifest entry %q is not a plain file name", ErrInvalidBackup, name)
		}
	}
	return m, nil
}

// checkVersion refuses backups from a newer release. "dev" on either side
// always passes, matching the database schema guard.
func checkVersion(backupVersion, current string) error {
	if backupVersion == "dev" || current == "dev" {
		return nil
	}
	b, c := normalizeVersion(backupVersion), normalizeVersion(current)
	if !semver.IsValid(b) {
		return fmt.Errorf("%w: manifest version %q", ErrInvalidBackup, backupVersion)
	}
	if semver.IsValid(c) && semver.Compare(c, b) < 0 {
		return fmt.Errorf("%w: backup=%s, binary=%s", ErrNewerBackup, backupVersion, current)
	}
	return nil
}

func normalizeVersion(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}

// walkArchive calls fn for every entry of a gzip tar archive after
// checking the entry name cannot escape the extraction directory.
func walkArchive(archivePath string, fn func(hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompressing archive: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive entry: %w", err)
		}
		if err := validateTarEntry(hdr.Name); err != nil {
			return err
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

// validateTarEntry rejects absolute names and names that climb out of the
// extraction directory.
func validateTarEntry(name string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("path traversal detected: absolute path %q", name)
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %q", name)
	}
	return nil
}

// extractFile writes r to a temporary sibling of destPath and renames it
// into place, so a failed restore never leaves a truncated database.
func extractFile(r io.Reader, destPath string) error {
	tmp := destPath + ".restore-tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	// Limit copy size to prevent decompression bombs.
	const maxFileSize = 10 << 30 // 10 GiB
	_, err = io.Copy(out, io.LimitReader(r, maxFileSize))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destPath)
}
