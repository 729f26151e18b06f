package sl_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKey   string
		wantValue string
	}{
		{
			name:      "plain error",
			err:       errors.New("something went wrong"),
			wantKey:   "error",
			wantValue: "something went wrong",
		},
		{
			name:      "nil error gives empty attr",
			err:       nil,
			wantKey:   "",
			wantValue: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := sl.Err(tt.err)
			assert.Equal(t, tt.wantKey, attr.Key)
			assert.Equal(t, tt.wantValue, attr.Value.String())
		})
	}
}

func TestErr_NilIsDroppedByHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	log.Info("no error here", sl.Err(nil), sl.Op("test.op"))

	assert.NotContains(t, buf.String(), "error=")
	assert.Contains(t, buf.String(), "op=test.op")
}
