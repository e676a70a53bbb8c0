package sqlite

import (
	"context"
	"testing"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()

	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestReportIndexesExistAfterMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	rows, err := client.db.QueryContext(ctx, "PRAGMA index_list('reports')")
	if err != nil {
		t.Fatalf("query index_list: %v", err)
	}
	defer rows.Close()

	indexes := make(map[string]struct{})
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			t.Fatalf("scan index row: %v", err)
		}
		indexes[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate index rows: %v", err)
	}

	required := []string{"idx_reports_chat_status_created", "idx_reports_status_created"}
	for _, name := range required {
		if _, ok := indexes[name]; !ok {
			t.Fatalf("required index %q not found", name)
		}
	}
}

func TestReopenDoesNotReapplyMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	if _, err := first.EnsureChat(ctx, -100, testNow); err != nil {
		t.Fatalf("ensure chat: %v", err)
	}
	_ = first.Close()

	second, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	chat, err := second.GetChat(ctx, -100)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chat == nil {
		t.Fatalf("chat must survive reopen")
	}
}
