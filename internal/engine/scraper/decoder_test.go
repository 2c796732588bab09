package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadStrict(t *testing.T) {
	body := []byte(")]}'\n[[null,[1,2,\"three\"]]]")

	tree := DecodePayload(body)
	require.NotNil(t, tree)
	assert.Equal(t, "three", nodeAt(tree, 0, 1, 2))
}

func TestDecodePayloadShortSentinel(t *testing.T) {
	body := []byte(")]}[\"ok\"]")

	tree := DecodePayload(body)
	require.NotNil(t, tree)
	assert.Equal(t, "ok", nodeAt(tree, 0))
}

func TestDecodePayloadNoSentinel(t *testing.T) {
	tree := DecodePayload([]byte(`[[1,2]]`))
	require.NotNil(t, tree)
	assert.Equal(t, float64(2), nodeAt(tree, 0, 1))
}

func TestDecodePayloadLeadingGarbage(t *testing.T) {
	// Decoding starts at the first open bracket
	tree := DecodePayload([]byte("window.data = [\"x\"]"))
	require.NotNil(t, tree)
	assert.Equal(t, "x", nodeAt(tree, 0))
}

func TestDecodePayloadNoBracket(t *testing.T) {
	assert.Nil(t, DecodePayload([]byte(")]}'\nnothing structured here")))
}

func TestDecodePayloadPermissiveFallback(t *testing.T) {
	// Single-quoted strings and Python keywords are not strict JSON
	body := []byte(")]}'\n[['Cafe Royale', None, True, False, 'it\\'s fine']]")

	tree := DecodePayload(body)
	require.NotNil(t, tree)
	assert.Equal(t, "Cafe Royale", nodeAt(tree, 0, 0))
	assert.Nil(t, nodeAt(tree, 0, 1))
	assert.Equal(t, true, nodeAt(tree, 0, 2))
	assert.Equal(t, false, nodeAt(tree, 0, 3))
	assert.Equal(t, "it's fine", nodeAt(tree, 0, 4))
}

func TestDecodePayloadPermissiveKeepsWordsInsideStrings(t *testing.T) {
	tree := DecodePayload([]byte("[['None of the above']]"))
	require.NotNil(t, tree)
	assert.Equal(t, "None of the above", nodeAt(tree, 0, 0))
}

func TestDecodePayloadBothDecodersFail(t *testing.T) {
	assert.Nil(t, DecodePayload([]byte(")]}'\n[{{{{")))
}
