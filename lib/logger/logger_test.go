package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := New("imgserve-test")
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Infow("test", "status", "logger built")
	_ = log.Sync()
}
