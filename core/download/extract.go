package download

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsArchive reports whether path names a format Extract understands.
func IsArchive(path string) bool {
	return archiveKind(path) != ""
}

func archiveKind(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return "zip"
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz"
	case strings.HasSuffix(lower, ".tar"):
		return "tar"
	}
	return ""
}

// Extract unpacks archivePath into dest. When dirs is non-empty only entries
// below one of those archive directories are written.
func Extract(archivePath, dest string, dirs []string) error {
	switch archiveKind(archivePath) {
	case "zip":
		return extractZip(archivePath, dest, dirs)
	case "tar.gz":
		return extractTar(archivePath, dest, dirs, true)
	case "tar":
		return extractTar(archivePath, dest, dirs, false)
	}
	return fmt.Errorf("unsupported archive format: %s", archivePath)
}

func wanted(name string, dirs []string) bool {
	if len(dirs) == 0 {
		return true
	}
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	for _, d := range dirs {
		d = strings.TrimSuffix(filepath.ToSlash(d), "/")
		if name == d || strings.HasPrefix(name, d+"/") {
			return true
		}
	}
	return false
}

// target joins name under dest and rejects entries escaping dest.
func target(dest, name string) (string, error) {
	p := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return p, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory %q: %w", filepath.Dir(path), err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0200)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return out.Close()
}

func extractZip(archivePath, dest string, dirs []string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("reading %q: %w", archivePath, err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.FileInfo().IsDir() || !wanted(file.Name, dirs) {
			continue
		}
		path, err := target(dest, file.Name)
		if err != nil {
			return err
		}
		if err := func() error {
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("opening zip reader for %q: %w", file.Name, err)
			}
			defer rc.Close()
			return writeFile(path, rc, file.Mode().Perm())
		}(); err != nil {
			return err
		}
	}
	return nil
}

func extractTar(archivePath, dest string, dirs []string, gzipped bool) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("reading %q: %w", archivePath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("reading gzip stream of %q: %w", archivePath, err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %q: %w", archivePath, err)
		}
		if hdr.Typeflag != tar.TypeReg || !wanted(hdr.Name, dirs) {
			continue
		}
		path, err := target(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := writeFile(path, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
			return err
		}
	}
}
