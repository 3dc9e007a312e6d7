package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/storage/postgres"
	testutils "github.com/papercomputeco/replay/pkg/utils/test"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("REPLAY_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("REPLAY_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	testutils.DescribeDriverContract(func() storage.Driver {
		driver, err := postgres.NewDriver(context.Background(), connStr())
		Expect(err).NotTo(HaveOccurred())
		return driver
	})
})
