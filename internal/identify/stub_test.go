package identify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatrace/aquatrace-go/internal/species"
)

func testCatalog(t *testing.T) *species.Catalog {
	t.Helper()
	c, err := species.New("")
	require.NoError(t, err)
	return c
}

func TestStubIdentifyShark(t *testing.T) {
	t.Parallel()
	stub := NewStub(testCatalog(t))

	for _, filename := range []string{"shark.jpg", "SHARK.PNG", "my_Shark_photo.webp"} {
		result, err := stub.Identify(context.Background(), Payload{Filename: filename})
		require.NoError(t, err, "stub never errors")
		assert.Equal(t, "Blue Shark", result.CommonName, "filename %q", filename)
		assert.Equal(t, "Near Threatened", result.ConservationStatus)
		assert.NotEmpty(t, result.Fact, "matched species should carry a fact")
		assert.Equal(t, MethodHeuristic, result.Method)
		assert.InDelta(t, stubConfidence, result.Confidence, 1e-9)
	}
}

func TestStubIdentifyTurtle(t *testing.T) {
	t.Parallel()
	stub := NewStub(testCatalog(t))

	result, err := stub.Identify(context.Background(), Payload{Filename: "green_TURTLE.jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "Green Sea Turtle", result.CommonName)
	assert.Equal(t, "Endangered", result.ConservationStatus)
}

func TestStubIdentifyUnknown(t *testing.T) {
	t.Parallel()
	stub := NewStub(testCatalog(t))

	result, err := stub.Identify(context.Background(), Payload{Filename: "vacation.jpg"})
	require.NoError(t, err)
	assert.Equal(t, species.UnknownID, result.SpeciesID)
	assert.Equal(t, "Unknown", result.CommonName)
	assert.Zero(t, result.Confidence)
	assert.False(t, result.Identified())
}

func TestStubIsIdempotent(t *testing.T) {
	t.Parallel()
	stub := NewStub(testCatalog(t))
	payload := Payload{Filename: "reef_shark_01.png"}

	first, err := stub.Identify(context.Background(), payload)
	require.NoError(t, err)
	second, err := stub.Identify(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same input must yield the same output")
}

func TestStubHintPrecedence(t *testing.T) {
	t.Parallel()
	stub := NewStub(testCatalog(t))

	// "jellyfish" contains "fish"; the more specific hint must win.
	result, err := stub.Identify(context.Background(), Payload{Filename: "jellyfish.png"})
	require.NoError(t, err)
	assert.Equal(t, "jellyfish", result.SpeciesID)
}
