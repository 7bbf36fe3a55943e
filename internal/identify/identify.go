// Package identify contains the species identification pipeline. Identifiers
// are injected capabilities behind a single interface so the heuristic stub
// and external models can be swapped without touching the request handlers.
package identify

import (
	"context"

	"github.com/aquatrace/aquatrace-go/internal/species"
)

// Detection method labels recorded with each ledger entry.
const (
	MethodHeuristic = "heuristic"
	MethodVision    = "vision-api"
)

// Payload is an uploaded image to identify. The heuristic identifier only
// needs the filename; the Vision fallback reads the content.
type Payload struct {
	Filename string
	Content  []byte
}

// Result is the outcome of a single identification.
type Result struct {
	SpeciesID          string  // catalog id, species.UnknownID when unidentified
	CommonName         string  // display label
	ScientificName     string
	Confidence         float64 // always in [0,1]
	Fact               string  // short descriptive fact for display
	ConservationStatus string
	Method             string // which identifier produced the result
}

// Identified reports whether the result names a concrete species.
func (r Result) Identified() bool {
	return r.SpeciesID != "" && r.SpeciesID != species.UnknownID
}

// Identifier maps an image payload to a species result. Implementations must
// be safe for concurrent use.
type Identifier interface {
	Identify(ctx context.Context, payload Payload) (Result, error)
}

func resultFromRecord(r species.Record, confidence float64, method string) Result {
	return Result{
		SpeciesID:          r.ID,
		CommonName:         r.CommonName,
		ScientificName:     r.ScientificName,
		Confidence:         clamp01(confidence),
		Fact:               r.Description,
		ConservationStatus: r.ConservationStatus,
		Method:             method,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
