package zipx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"
)

// MaxEntryBytes bounds a single decompressed entry unless the caller overrides it.
const MaxEntryBytes int64 = 256 * 1024 * 1024

var fixedModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type File struct {
	Path string
	Data []byte
	Mode os.FileMode
}

// WriteDeterministicZip writes files in the given order with a fixed timestamp so
// identical inputs always produce identical archives.
func WriteDeterministicZip(writer io.Writer, files []File) error {
	zipWriter := zip.NewWriter(writer)
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		if file.Path == "" {
			_ = zipWriter.Close()
			return fmt.Errorf("zip entry path is required")
		}
		if _, exists := seen[file.Path]; exists {
			_ = zipWriter.Close()
			return fmt.Errorf("duplicate zip entry: %s", file.Path)
		}
		seen[file.Path] = struct{}{}
		mode := file.Mode
		if mode == 0 {
			mode = 0o644
		}
		header := &zip.FileHeader{
			Name:     file.Path,
			Method:   zip.Deflate,
			Modified: fixedModTime,
		}
		header.SetMode(mode)
		entryWriter, err := zipWriter.CreateHeader(header)
		if err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("create zip entry %s: %w", file.Path, err)
		}
		if _, err := entryWriter.Write(file.Data); err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("write zip entry %s: %w", file.Path, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

// ReadFiles returns every regular entry in archive order.
func ReadFiles(path string, maxEntryBytes int64) ([]File, error) {
	if maxEntryBytes <= 0 {
		maxEntryBytes = MaxEntryBytes
	}
	zipReader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer func() {
		_ = zipReader.Close()
	}()

	files := make([]File, 0, len(zipReader.File))
	for _, zipFile := range zipReader.File {
		if zipFile.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(zipFile, maxEntryBytes)
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s: %w", zipFile.Name, err)
		}
		files = append(files, File{Path: zipFile.Name, Data: data, Mode: zipFile.Mode().Perm()})
	}
	return files, nil
}

func readZipFile(zipFile *zip.File, maxEntryBytes int64) ([]byte, error) {
	if zipFile.UncompressedSize64 > uint64(maxEntryBytes) {
		return nil, fmt.Errorf("zip entry too large: %d", zipFile.UncompressedSize64)
	}
	reader, err := zipFile.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(reader, maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxEntryBytes {
		return nil, fmt.Errorf("zip entry exceeds max size")
	}
	return data, nil
}
