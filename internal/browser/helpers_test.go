package browser

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hieund/repostbot/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
