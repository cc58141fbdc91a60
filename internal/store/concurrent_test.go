// ABOUTME: Stress tests for concurrent store access.
// ABOUTME: Parallel creates, bulk inserts and page reads must not lose rows or fail.

package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ekoru/admin/internal/record"
	"github.com/ekoru/admin/internal/table"
)

// TestConcurrentCreates tests multiple goroutines creating rows simultaneously
func TestConcurrentCreates(t *testing.T) {
	s := setupTestDB(t)

	numGoroutines := 20
	rowsPerGoroutine := 25
	var wg sync.WaitGroup
	var errorCount int32

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < rowsPerGoroutine; j++ {
				values := record.FromPairs("name", fmt.Sprintf("Region %d-%d", id, j))
				if _, err := s.Create(context.Background(), regionsOp, values); err != nil {
					atomic.AddInt32(&errorCount, 1)
					t.Logf("Create error: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if errorCount > 0 {
		t.Errorf("Expected 0 errors, got %d", errorCount)
	}
	n, err := s.Count(context.Background(), "regions")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if want := numGoroutines * rowsPerGoroutine; n != want {
		t.Errorf("Count() = %d, want %d", n, want)
	}
}

// TestConcurrentBulkInsertAndRead runs bulk imports while readers page through the table
func TestConcurrentBulkInsertAndRead(t *testing.T) {
	s := setupTestDB(t)

	numWriters := 8
	numReaders := 8
	batchesPerWriter := 5
	batchSize := 10
	var wg sync.WaitGroup
	var errorCount int32

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for b := 0; b < batchesPerWriter; b++ {
				rows := make([]record.Row, batchSize)
				for k := range rows {
					rows[k] = record.FromPairs("id", fmt.Sprintf("w%d-b%d-%d", id, b, k), "name", "bulk")
				}
				res, err := s.InsertRows(context.Background(), "cities", rows)
				if err != nil || len(res.Failures) > 0 {
					atomic.AddInt32(&errorCount, 1)
					t.Logf("InsertRows error: %v %+v", err, res.Failures)
				}
			}
		}(i)
	}

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := 1; page <= 20; page++ {
				_, err := s.Fetch(context.Background(), table.Request{Table: "cities", Page: page%5 + 1, PageSize: 10})
				if err != nil {
					atomic.AddInt32(&errorCount, 1)
					t.Logf("Fetch error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if errorCount > 0 {
		t.Errorf("Expected 0 errors during concurrent access, got %d", errorCount)
	}
	rows, err := table.FetchAll(context.Background(), s, "cities", 50)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if want := numWriters * batchesPerWriter * batchSize; len(rows) != want {
		t.Errorf("len(rows) = %d, want %d", len(rows), want)
	}
}
