package testing

import (
	"context"
	"fmt"
)

// TestWithDB runs fn against a fresh migrated database and tears it down
// afterwards
func TestWithDB(fn func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to set up test database: %w", err)
	}
	defer testDB.TeardownTestDB()

	return fn(testDB)
}

// CreateTestContext returns a context for repository and flow calls in tests
func CreateTestContext() context.Context {
	return context.Background()
}
