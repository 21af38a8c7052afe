package outcome

import (
	"os"
	"testing"

	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetDefault((&logger.Config{Discard: true}).Build())
	os.Exit(m.Run())
}
