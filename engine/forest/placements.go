package forest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/core"
)

// PlacementRecord is one placed instance: translation, XYZ Euler rotation in
// radians, and scale. The JSON field names are the persisted wire format.
type PlacementRecord struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	RotationX float64 `json:"rotationX"`
	RotationY float64 `json:"rotationY"`
	RotationZ float64 `json:"rotationZ"`
	ScaleX    float64 `json:"scaleX"`
	ScaleY    float64 `json:"scaleY"`
	ScaleZ    float64 `json:"scaleZ"`
}

// PlacementSet groups placement records by semantic object identifier,
// including the ObjectUndefined slot. Produced by exactly one writer per
// analysis run and handed off as a value.
type PlacementSet map[string][]PlacementRecord

// Add appends a record under an object identifier.
func (s PlacementSet) Add(objectID string, r PlacementRecord) {
	s[objectID] = append(s[objectID], r)
}

// Total counts records across all object identifiers.
func (s PlacementSet) Total() int {
	n := 0
	for _, records := range s {
		n += len(records)
	}
	return n
}

// LoadPlacements probes the candidate locations in order and returns the
// first that yields parseable JSON. Candidates starting with http:// or
// https:// are fetched, the rest are read as files. When every candidate
// fails the fallback set is returned; with no fallback either, the error
// describes the last failure.
func LoadPlacements(ctx context.Context, candidates []string, client *http.Client, fallback PlacementSet) (PlacementSet, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var lastErr error
	for _, candidate := range candidates {
		data, err := fetchCandidate(ctx, client, candidate)
		if err != nil {
			core.LogDebug("placement candidate %q: %v", candidate, err)
			lastErr = err
			continue
		}
		var set PlacementSet
		if err := json.Unmarshal(data, &set); err != nil {
			core.LogDebug("placement candidate %q: %v", candidate, err)
			lastErr = err
			continue
		}
		core.LogInfo("loaded %d placements from %s", set.Total(), candidate)
		return set, nil
	}
	if fallback != nil {
		core.LogWarn("no placement candidate succeeded, using in-memory fallback")
		return fallback, nil
	}
	return nil, errors.Wrap(lastErr, "no placement candidate succeeded")
}

func fetchCandidate(ctx context.Context, client *http.Client, candidate string) ([]byte, error) {
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(candidate)
}

// SavePlacements writes the set as indented JSON, creating the directory if
// needed.
func SavePlacements(path string, set PlacementSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding placements")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %q", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	return nil
}
