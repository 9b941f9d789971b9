package monlog

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	original := Get()
	defer Set(original)

	var buf bytes.Buffer
	Set(zerolog.New(&buf))

	Get().Info().Msg("hello")
	if buf.Len() == 0 {
		t.Fatalf("expected the custom logger to receive the log line")
	}
}

func TestDefaultLevelIsInfo(t *testing.T) {
	if Get().GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected the default level to be Info")
	}
}
