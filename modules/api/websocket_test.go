package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/collab-template-demo/domain/validation"
	"github.com/example/collab-template-demo/modules/session"
)

func TestMaxFrameBytes(t *testing.T) {
	// U+2028 is escaped by encoding/json, the widest encoding a rune can take.
	longest, err := json.Marshal(session.InboundFrame{
		Kind: session.InboundMessage,
		Text: strings.Repeat("\u2028", validation.MaxMessageLength),
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(longest), maxFrameBytes)

	oversized, err := json.Marshal(session.InboundFrame{
		Kind: session.InboundMessage,
		Text: strings.Repeat("x", 16<<10),
	})
	require.NoError(t, err)
	assert.Greater(t, len(oversized), maxFrameBytes)
}
