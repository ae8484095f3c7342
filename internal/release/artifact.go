package release

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// BuildSdist packages the project directory as a source distribution
// tarball (<name>-<version>.tar.gz) in destDir and returns its path.
// VCS metadata and build residue are excluded.
func BuildSdist(projectDir, destDir, name string, version Version) (string, error) {
	artifact := filepath.Join(destDir, fmt.Sprintf("%s-%s.tar.gz", name, version))

	out, err := os.Create(artifact)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	prefix := fmt.Sprintf("%s-%s", name, version)
	err = filepath.Walk(projectDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(projectDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if excluded(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(filepath.Join(prefix, rel))
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to build sdist: %w", err)
	}

	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return artifact, out.Close()
}

func excluded(rel string) bool {
	base := filepath.Base(rel)
	switch base {
	case ".git", "__pycache__", ".tox", ".venv", "dist", ".pytest_cache":
		return true
	}
	return strings.HasSuffix(base, ".pyc")
}
