package usecase

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/m-mizutani/goerr/v2"
	"github.com/ulikunitz/xz"

	"github.com/slipway-dev/slipway/pkg/domain/model"
)

// archiveEntry is one file bundled into a leg archive.
type archiveEntry struct {
	// Name is the path inside the archive.
	Name string
	// Path is the source file on disk.
	Path string
	Mode fs.FileMode
}

// writeArchive packages entries into destPath using the given kind and
// returns the resulting asset with its sha256 digest filled in.
func writeArchive(destPath string, kind model.ArchiveKind, entries []archiveEntry) (model.Asset, error) {
	f, err := os.Create(destPath)
	if err != nil {
		return model.Asset{}, goerr.Wrap(err, "failed to create archive file", goerr.V("path", destPath))
	}
	defer f.Close()

	switch kind {
	case model.ArchiveZip:
		err = writeZip(f, entries)
	case model.ArchiveTarGz:
		gz := gzip.NewWriter(f)
		if err = writeTar(gz, entries); err == nil {
			err = gz.Close()
		}
	case model.ArchiveTarXz:
		var xw *xz.Writer
		xw, err = xz.NewWriter(f)
		if err == nil {
			if err = writeTar(xw, entries); err == nil {
				err = xw.Close()
			}
		}
	default:
		err = goerr.New("unknown archive kind", goerr.V("kind", string(kind)))
	}
	if err != nil {
		return model.Asset{}, goerr.Wrap(err, "failed to write archive", goerr.V("path", destPath))
	}

	if err := f.Close(); err != nil {
		return model.Asset{}, goerr.Wrap(err, "failed to flush archive", goerr.V("path", destPath))
	}

	return assetFromFile(destPath)
}

func writeZip(w io.Writer, entries []archiveEntry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		src, err := os.Open(e.Path)
		if err != nil {
			return err
		}

		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		hdr.SetMode(e.Mode)
		dst, err := zw.CreateHeader(hdr)
		if err == nil {
			_, err = io.Copy(dst, src)
		}
		src.Close()
		if err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeTar(w io.Writer, entries []archiveEntry) error {
	tw := tar.NewWriter(w)
	for _, e := range entries {
		info, err := os.Stat(e.Path)
		if err != nil {
			return err
		}

		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    int64(e.Mode.Perm()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		src, err := os.Open(e.Path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, src)
		src.Close()
		if err != nil {
			return err
		}
	}
	return tw.Close()
}

// assetFromFile stats and hashes a produced file.
func assetFromFile(path string) (model.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Asset{}, goerr.Wrap(err, "failed to open asset", goerr.V("path", path))
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return model.Asset{}, goerr.Wrap(err, "failed to hash asset", goerr.V("path", path))
	}

	return model.Asset{
		Name:   filepath.Base(path),
		Path:   path,
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   size,
	}, nil
}

// collectExtraFiles resolves extra-file glob patterns against the
// project directory. A pattern matching nothing is not an error.
func collectExtraFiles(dir string, patterns []string) ([]archiveEntry, error) {
	var matchers []glob.Glob
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, goerr.Wrap(err, "invalid extra-files pattern", goerr.V("pattern", pattern))
		}
		matchers = append(matchers, g)
	}

	var entries []archiveEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, g := range matchers {
			if g.Match(rel) {
				info, err := d.Info()
				if err != nil {
					return err
				}
				entries = append(entries, archiveEntry{Name: rel, Path: path, Mode: info.Mode()})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan extra files", goerr.V("dir", dir))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// renderChecksums produces the checksums.txt body: one
// "<sha256>  <name>" line per asset, sorted by file name.
func renderChecksums(assets []model.Asset) string {
	sorted := append([]model.Asset(nil), assets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	for _, a := range sorted {
		fmt.Fprintf(&sb, "%s  %s\n", a.SHA256, a.Name)
	}
	return sb.String()
}
