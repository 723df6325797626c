package dungeons

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDir collects raw records from every *.json file under dir. A file may
// hold one record or an array of records. Source ids are slash paths
// relative to base, with "#i" appended for array items. A missing dir
// yields no entries.
func LoadDir(base, dir string) ([]RawEntry, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []RawEntry
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		id := p
		if rel, err := filepath.Rel(base, p); err == nil {
			id = filepath.ToSlash(rel)
		}
		trimmed := bytes.TrimSpace(b)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				// Keep the broken file as one entry so it is reported, not lost.
				out = append(out, RawEntry{SourceID: id, Raw: b})
				continue
			}
			for i, it := range items {
				out = append(out, RawEntry{SourceID: fmt.Sprintf("%s#%d", id, i), Raw: it})
			}
			continue
		}
		out = append(out, RawEntry{SourceID: id, Raw: b})
	}
	return out, nil
}
