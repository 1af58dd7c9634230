// Package session reads and writes the portable session document a host
// exports and later loads back.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/DoyleJ11/hexmap/internal/world"
)

var ErrMalformedDocument = errors.New("malformed session document")
var ErrUnsupportedVersion = errors.New("unsupported session document version")

// ImportedScenarioName names the scenario synthesized from a document written
// before scenarios existed.
const ImportedScenarioName = "Imported Map"

const importedScenarioID = "imported"

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Document is the exported form of a World. The flattened fields mirror the
// current scenario so older readers can still open the file.
type Document struct {
	Version              int              `json:"version"`
	Timestamp            int64            `json:"timestamp"`
	Scenarios            []world.Scenario `json:"scenarios,omitempty"`
	CurrentScenarioID    string           `json:"currentScenarioId,omitempty"`
	Grid                 world.GridMap    `json:"grid"`
	Characters           []world.Token    `json:"characters"`
	BackgroundImage      *string          `json:"backgroundImage"`
	BackgroundDimensions *Dimensions      `json:"backgroundDimensions,omitempty"`
	HexSize              int              `json:"hexSize"`
}

// Export builds a document for w stamped with now.
func Export(w world.World, now time.Time) Document {
	doc := Document{
		Version:           world.SchemaVersion,
		Timestamp:         now.UnixMilli(),
		Scenarios:         world.CloneScenarios(w.Scenarios),
		CurrentScenarioID: w.CurrentScenarioID,
		Grid:              world.GridMap{},
		Characters:        []world.Token{},
		HexSize:           world.DefaultHexSize,
	}
	if cur, ok := w.Current(); ok {
		doc.Grid = cur.Grid.Clone()
		doc.Characters = world.CloneTokens(cur.Tokens)
		doc.HexSize = cur.HexSize
		if cur.Background.URL != "" {
			url := cur.Background.URL
			doc.BackgroundImage = &url
			width, height := cur.Background.Dimensions()
			doc.BackgroundDimensions = &Dimensions{Width: width, Height: height}
		}
	}
	return doc
}

func Encode(out io.Writer, doc Document) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode session document: %w", err)
	}
	return nil
}

// Decode reads a document and returns the World it describes. Documents
// without scenarios are migrated into a single current scenario. Any failure
// leaves the caller's World untouched since nothing is returned but the error.
func Decode(in io.Reader) (world.World, error) {
	var doc Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return world.World{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return Restore(doc)
}

// Restore turns a decoded document into a World.
func Restore(doc Document) (world.World, error) {
	if doc.Version > world.SchemaVersion {
		return world.World{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	w := world.World{
		Version:       world.SchemaVersion,
		UserLocations: map[string]world.UserLocation{},
	}
	if doc.Scenarios == nil {
		w.Scenarios = []world.Scenario{legacyScenario(doc)}
		w.CurrentScenarioID = importedScenarioID
	} else {
		w.Scenarios = world.CloneScenarios(doc.Scenarios)
		w.CurrentScenarioID = doc.CurrentScenarioID
		for i := range w.Scenarios {
			w.Scenarios[i] = world.NormalizeScenario(w.Scenarios[i])
		}
	}

	if err := world.Validate(w); err != nil {
		return world.World{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return w, nil
}

func legacyScenario(doc Document) world.Scenario {
	size := doc.HexSize
	if size <= 0 {
		size = world.DefaultHexSize
	}
	s := world.NewScenario(importedScenarioID, ImportedScenarioName, size)
	s.Grid = doc.Grid.Normalize()
	s.Tokens = world.CloneTokens(doc.Characters)
	if doc.BackgroundImage != nil {
		s.Background.URL = *doc.BackgroundImage
		if doc.BackgroundDimensions != nil {
			s.Background.Width = doc.BackgroundDimensions.Width
			s.Background.Height = doc.BackgroundDimensions.Height
		}
	}
	return world.NormalizeScenario(s)
}
