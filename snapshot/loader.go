package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
)

// Load reads the snapshot from dir. A missing snapshot is not an error;
// the engine then starts cold and replays the full WAL.
func Load(dir string) (*Snapshot, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
