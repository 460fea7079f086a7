package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name  string
		errs  string
		warns string
		level int
		want  string
	}{
		{
			name:  "message only",
			level: 1,
			want:  "[P4.run] Errors during command execution",
		},
		{
			name:  "errors appended",
			errs:  "[Error]: no such file",
			level: 1,
			want:  "[P4.run] Errors during command execution\n[Error]: no such file\n\n",
		},
		{
			name:  "warnings hidden below level 2",
			warns: "[Warning]: up to date",
			level: 1,
			want:  "[P4.run] Errors during command execution",
		},
		{
			name:  "errors and warnings at level 2",
			errs:  "[Error]: a",
			warns: "[Warning]: b",
			level: 2,
			want:  "[P4.run] Errors during command execution\n[Error]: a\n[Warning]: b\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose("P4.run", "Errors during command execution", tt.errs, tt.warns, tt.level)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithCommand(t *testing.T) {
	assert.Equal(t, "Errors during command execution( p4 files //... )",
		WithCommand("Errors during command execution", "p4 files //..."))
}

func TestKindOf(t *testing.T) {
	base := New(NotConnected, "not connected.")
	wrapped := fmt.Errorf("run: %w", base)

	assert.Equal(t, NotConnected, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotConnected))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.ErrorIs(t, Wrap(ConnectFailed, "connect", base), base)
}
