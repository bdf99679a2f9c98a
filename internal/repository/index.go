package repository

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/fs"
)

// Load replaces the in-memory index with the content of the index file. A
// missing index file yields an empty index. Malformed lines are skipped and
// reported through Warnf.
func (r *Repository) Load() error {
	f, err := os.Open(r.indexFile())
	if errors.Is(err, os.ErrNotExist) {
		debug.Log("no index in %v", r.root)
		r.index = make(map[string]data.Metadata)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "Open")
	}
	defer func() {
		_ = f.Close()
	}()

	index, skipped, err := decodeIndex(f)
	if err != nil {
		return errors.Wrap(err, "load index")
	}
	if skipped > 0 {
		r.warnf("index: skipped %d malformed lines\n", skipped)
	}

	debug.Log("loaded %d entries from %v", len(index), r.indexFile())
	r.index = index
	return nil
}

// Save writes the index file. The file is replaced atomically.
func (r *Repository) Save() error {
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return errors.Wrap(err, "MkdirAll")
	}

	err := fs.WriteFileAtomic(r.indexFile(), 0644, func(wr io.Writer) error {
		return encodeIndex(wr, r.List())
	})
	if err != nil {
		return errors.Wrap(err, "save index")
	}

	debug.Log("saved %d entries to %v", len(r.index), r.indexFile())
	return nil
}

// parseIndexLine splits a line at the first tab and parses the metadata.
func parseIndexLine(line string) (string, data.Metadata, error) {
	rel, serialized, found := strings.Cut(line, "\t")
	if !found {
		return "", data.Metadata{}, errors.New("missing tab")
	}
	if err := ValidPath(rel); err != nil {
		return "", data.Metadata{}, err
	}
	m, err := data.ParseMetadata(serialized)
	if err != nil {
		return "", data.Metadata{}, err
	}
	return rel, m, nil
}

func decodeIndex(rd io.Reader) (map[string]data.Metadata, int, error) {
	index := make(map[string]data.Metadata)
	skipped := 0

	br := bufio.NewReader(rd)
	for lineno := 1; ; lineno++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, 0, errors.Wrap(err, "ReadString")
		}

		line = strings.TrimSuffix(line, "\n")
		if line != "" {
			rel, m, perr := parseIndexLine(line)
			if perr != nil {
				debug.Log("skipping index line %d: %v", lineno, perr)
				skipped++
			} else {
				index[rel] = m
			}
		}

		if err == io.EOF {
			return index, skipped, nil
		}
	}
}

func encodeIndex(wr io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(wr)
	for _, e := range entries {
		if _, err := bw.WriteString(e.Path + "\t" + e.Metadata.Serialize() + "\n"); err != nil {
			return errors.Wrap(err, "Write")
		}
	}
	return errors.Wrap(bw.Flush(), "Flush")
}
