package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/collab-template-demo/domain/room"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    InboundFrame
		wantErr string
	}{
		{
			name:    "chat message",
			payload: `{"kind":"message","text":"hi"}`,
			want:    InboundFrame{Kind: InboundMessage, Text: "hi"},
		},
		{
			name:    "change template",
			payload: `{"kind":"change_template","filename":"report.md"}`,
			want:    InboundFrame{Kind: InboundChangeTemplate, Filename: "report.md"},
		},
		{
			name:    "message with settings",
			payload: `{"kind":"message","text":"@ai go","settings":{"temperature":1.2}}`,
			want:    InboundFrame{Kind: InboundMessage, Text: "@ai go", Settings: &Settings{Temperature: 1.2}},
		},
		{name: "broken json", payload: `{"kind":`, wantErr: "invalid JSON"},
		{name: "missing kind", payload: `{"text":"hi"}`, wantErr: `unknown kind ""`},
		{name: "unknown kind", payload: `{"kind":"shout","text":"hi"}`, wantErr: `unknown kind "shout"`},
		{name: "missing text", payload: `{"kind":"message"}`, wantErr: "missing text"},
		{name: "missing filename", payload: `{"kind":"change_template"}`, wantErr: "missing filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFrame([]byte(tt.payload))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, room.ErrProtocol)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
