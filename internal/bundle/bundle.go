// Package bundle reads and writes the zip bundles that carry encoded images.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/echocipher/carrier/internal/errors"
)

// DefaultMaxEntryBytes caps a decompressed entry when no other limit is given.
const DefaultMaxEntryBytes int64 = 1 << 30

var (
	// ErrInvalidBundle indicates data that is not a readable zip archive.
	ErrInvalidBundle = errors.Wrap(errors.ErrInvalidInput, "invalid bundle archive")

	// ErrEntryTooLarge indicates an entry that decompresses past the allowed size.
	ErrEntryTooLarge = errors.Wrap(ErrInvalidBundle, "bundle entry too large")
)

var partPattern = regexp.MustCompile(`_part(\d+)_of_(\d+)$`)

var imageExtensions = map[string]bool{
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// Entry is one file of a bundle.
type Entry struct {
	Name string
	Data []byte
}

// Pack writes entries, in order, into a zip archive.
func Pack(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack returns the regular files of a zip archive in archive order. Entry
// names are reduced to their base name.
func Unpack(data []byte) ([]Entry, error) {
	return UnpackLimited(data, DefaultMaxEntryBytes)
}

// UnpackLimited is Unpack with every decompressed entry capped at
// maxEntryBytes. A non-positive limit means DefaultMaxEntryBytes.
func UnpackLimited(data []byte, maxEntryBytes int64) ([]Entry, error) {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidBundle, err.Error())
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "." || name == ".." || name == "/" {
			continue
		}
		content, err := readEntry(f, maxEntryBytes)
		if errors.Is(err, ErrEntryTooLarge) {
			return nil, err
		}
		if err != nil {
			return nil, errors.Wrap(ErrInvalidBundle, err.Error())
		}
		entries = append(entries, Entry{Name: name, Data: content})
	}
	return entries, nil
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()
	// The header size is not trusted; the read is bounded as well.
	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}
	return content, nil
}

// IsImage reports whether name has a chunk image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Chunks keeps the image entries and puts them in chunk order: by the
// _partNNNN_of_MMMM suffix when every image carries one, otherwise in archive order.
func Chunks(entries []Entry) []Entry {
	images := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if IsImage(e.Name) {
			images = append(images, e)
		}
	}

	parts := make([]int, len(images))
	for i, e := range images {
		n, ok := partNumber(e.Name)
		if !ok {
			return images
		}
		parts[i] = n
	}

	order := make([]int, len(images))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return parts[order[a]] < parts[order[b]]
	})
	sorted := make([]Entry, len(images))
	for i, idx := range order {
		sorted[i] = images[idx]
	}
	return sorted
}

func partNumber(name string) (int, bool) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	m := partPattern.FindStringSubmatch(stem)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
