package release

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/ulikunitz/xz"
)

// BuildArchive packs the given files into dest. The archive format is picked
// from the destination's extension: .tar.gz, .tar.xz or .zip. Entries are
// stored under their base names, sorted, so repeated builds from the same
// inputs produce the same layout.
func BuildArchive(dest string, files []string) error {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	handle, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "failed to create archive %s", dest)
	}
	defer handle.Close()

	switch {
	case strings.HasSuffix(dest, ".tar.gz"):
		writer := gzip.NewWriter(handle)
		err = writeTar(writer, sorted)
		if err == nil {
			err = writer.Close()
		}
	case strings.HasSuffix(dest, ".tar.xz"):
		writer, xzErr := xz.NewWriter(handle)
		if xzErr != nil {
			return eris.Wrap(xzErr, "failed to initialize xz writer")
		}
		err = writeTar(writer, sorted)
		if err == nil {
			err = writer.Close()
		}
	case strings.HasSuffix(dest, ".zip"):
		err = writeZip(handle, sorted)
	default:
		return eris.Errorf("unsupported archive format for %s (use .tar.gz, .tar.xz or .zip)", dest)
	}

	if err != nil {
		os.Remove(dest)
		return eris.Wrapf(err, "failed to write archive %s", dest)
	}

	return nil
}

func writeTar(w io.Writer, files []string) error {
	archive := tar.NewWriter(w)

	for _, file := range files {
		handle, err := os.Open(file)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", file)
		}

		info, err := handle.Stat()
		if err != nil {
			handle.Close()
			return eris.Wrapf(err, "failed to stat %s", file)
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			handle.Close()
			return eris.Wrapf(err, "failed to build header for %s", file)
		}
		header.Name = filepath.Base(file)

		err = archive.WriteHeader(header)
		if err == nil {
			_, err = io.Copy(archive, handle)
		}
		handle.Close()
		if err != nil {
			return eris.Wrapf(err, "failed to archive %s", file)
		}
	}

	return archive.Close()
}

func writeZip(w io.Writer, files []string) error {
	archive := zip.NewWriter(w)

	for _, file := range files {
		handle, err := os.Open(file)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", file)
		}

		info, err := handle.Stat()
		if err != nil {
			handle.Close()
			return eris.Wrapf(err, "failed to stat %s", file)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			handle.Close()
			return eris.Wrapf(err, "failed to build header for %s", file)
		}
		header.Name = filepath.Base(file)
		header.Method = zip.Deflate

		entry, err := archive.CreateHeader(header)
		if err == nil {
			_, err = io.Copy(entry, handle)
		}
		handle.Close()
		if err != nil {
			return eris.Wrapf(err, "failed to archive %s", file)
		}
	}

	return archive.Close()
}

// WriteChecksums writes a sha256sum-compatible manifest for the given files.
func WriteChecksums(dest string, files []string) error {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}
	defer out.Close()

	for _, file := range sorted {
		digest, err := fileChecksum(file)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "%s  %s\n", digest, filepath.Base(file))
		if err != nil {
			return eris.Wrapf(err, "failed to write %s", dest)
		}
	}

	return nil
}

func fileChecksum(path string) (string, error) {
	handle, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "failed to open %s", path)
	}
	defer handle.Close()

	hash := sha256.New()
	_, err = io.Copy(hash, handle)
	if err != nil {
		return "", eris.Wrapf(err, "failed to hash %s", path)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
