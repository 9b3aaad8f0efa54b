// FILE: metadata_test.go
package hotwire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetadataForSameSite verifies that one call site with one argument
// signature always resolves to the same registry record
func TestMetadataForSameSite(t *testing.T) {
	pc := callerPC(0)
	kinds := []argKind{kindInt, kindString}
	sig := signatureHash(kinds)

	first := metadataFor(pc, sig, "n=%d s=%s", LevelInfo, eventLog, kinds)
	second := metadataFor(pc, sig, "n=%d s=%s", LevelInfo, eventLog, kinds)

	assert.Same(t, first, second)
	assert.Equal(t, first.ID, second.ID)
}

// TestMetadataForDistinctSignatures verifies the same program counter with a
// different argument kind sequence registers a separate record
func TestMetadataForDistinctSignatures(t *testing.T) {
	pc := callerPC(0)
	a := metadataFor(pc, signatureHash([]argKind{kindInt}), "v=%v", LevelInfo, eventLog, []argKind{kindInt})
	b := metadataFor(pc, signatureHash([]argKind{kindString}), "v=%v", LevelInfo, eventLog, []argKind{kindString})

	require.NotSame(t, a, b)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []argKind{kindInt}, a.kinds)
	assert.Equal(t, []argKind{kindString}, b.kinds)
}

// TestMetadataForDistinctFormats verifies one program counter forwarding
// different runtime format strings registers one record per format
func TestMetadataForDistinctFormats(t *testing.T) {
	pc := callerPC(0)
	kinds := []argKind{kindInt}
	sig := signatureHash(kinds)

	a := metadataFor(pc, sig, "serving on port %d", LevelInfo, eventLog, kinds)
	b := metadataFor(pc, sig, "closing conn id %d", LevelInfo, eventLog, kinds)

	require.NotSame(t, a, b)
	assert.Equal(t, "serving on port %d", a.Format)
	assert.Equal(t, "closing conn id %d", b.Format)
	assert.Same(t, a, metadataFor(pc, sig, "serving on port %d", LevelInfo, eventLog, kinds))
}

// TestMetadataByID verifies ids round-trip through the registry table
func TestMetadataByID(t *testing.T) {
	pc := callerPC(0)
	md := metadataFor(pc, signatureHash(nil), "plain", LevelWarn, eventLog, nil)

	got := metadataByID(md.ID)
	require.NotNil(t, got)
	assert.Same(t, md, got)

	assert.Nil(t, metadataByID(^uint32(0)))
}

// TestMetadataCapturesCallSite verifies the resolved source location points
// into this test file
func TestMetadataCapturesCallSite(t *testing.T) {
	pc := callerPC(0)
	md := metadataFor(pc, signatureHash(nil), "where am i", LevelInfo, eventLog, nil)

	assert.True(t, strings.HasSuffix(md.File, "metadata_test.go"), "file was %q", md.File)
	assert.Greater(t, md.Line, 0)
	assert.Contains(t, md.Function, "TestMetadataCapturesCallSite")
}

// TestMetadataKindsCopied verifies the registry does not alias the caller's
// kinds slice
func TestMetadataKindsCopied(t *testing.T) {
	pc := callerPC(0)
	kinds := []argKind{kindBool, kindFloat64}
	md := metadataFor(pc, signatureHash(kinds), "b=%v f=%v", LevelInfo, eventLog, kinds)

	kinds[0] = kindString
	assert.Equal(t, kindBool, md.kinds[0])
}
