package gtfs

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// indexImage is the gob wire form of a StationIndex. Kept separate so the
// index itself can stay unexported-field read-only.
type indexImage struct {
	Stations     map[string]*Station
	NameOrder    []string
	StopsByRoute map[string][]string
	ParentOf     map[string]string
	ChildrenOf   map[string][]string
}

// SerializeIndex encodes a StationIndex using gob. Used for disk caching so
// a process restart does not need the static source to be reachable.
func SerializeIndex(idx *StationIndex) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeIndexToWriter(idx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SerializeIndexToWriter writes a gob-encoded StationIndex to w.
func SerializeIndexToWriter(idx *StationIndex, w io.Writer) error {
	img := indexImage{
		Stations:     idx.stations,
		NameOrder:    idx.nameOrder,
		StopsByRoute: idx.stopsByRoute,
		ParentOf:     idx.parentOf,
		ChildrenOf:   idx.childrenOf,
	}
	if err := gob.NewEncoder(w).Encode(img); err != nil {
		return fmt.Errorf("failed to encode station index: %w", err)
	}
	return nil
}

// DeserializeIndex decodes a StationIndex previously written by
// SerializeIndex. The returned index is safe for concurrent reads.
func DeserializeIndex(data []byte) (*StationIndex, error) {
	return DeserializeIndexFromReader(bytes.NewReader(data))
}

// DeserializeIndexFromReader decodes a gob-encoded StationIndex from r.
func DeserializeIndexFromReader(r io.Reader) (*StationIndex, error) {
	var img indexImage
	if err := gob.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("failed to decode station index: %w", err)
	}
	idx := &StationIndex{
		stations:     img.Stations,
		nameOrder:    img.NameOrder,
		stopsByRoute: img.StopsByRoute,
		parentOf:     img.ParentOf,
		childrenOf:   img.ChildrenOf,
		normNames:    map[string]string{},
	}
	// The normalized-name table is derived, not stored; rebuild it in the
	// same stops-file order it was built from.
	for _, id := range idx.nameOrder {
		norm := NormalizeName(idx.stations[id].Name)
		if _, seen := idx.normNames[norm]; !seen {
			idx.normNames[norm] = id
		}
	}
	return idx, nil
}

// SaveIndexFile writes a StationIndex to a file.
func SaveIndexFile(idx *StationIndex, path string) error {
	data, err := SerializeIndex(idx)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadIndexFile reads a StationIndex from a file written by SaveIndexFile.
func LoadIndexFile(path string) (*StationIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index cache: %w", err)
	}
	return DeserializeIndex(data)
}
