package rankhistory

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock(s string) TrackerOption {
	return WithClock(func() time.Time { return date(s).Add(15 * time.Hour) })
}

func TestTracker_TrendImproved(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-01-31"))

	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-01"), map[string]int{"foo": 10}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-30"), map[string]int{"foo": 4}))

	got, err := tr.Trend(ctx, "example.com", "foo", 31)
	require.NoError(t, err)
	assert.Equal(t, Improved, got.Direction)
	assert.Equal(t, 6, got.ChangeMagnitude)
	assert.Equal(t, 10, got.OldestRank)
	assert.Equal(t, 4, got.NewestRank)
}

func TestTracker_TrendWorsened(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-03-10"))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-03-01"), map[string]int{"foo": 2}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-03-09"), map[string]int{"foo": 7}))

	got, err := tr.Trend(ctx, "example.com", "Foo", 30)
	require.NoError(t, err)
	assert.Equal(t, Worsened, got.Direction)
	assert.Equal(t, 5, got.ChangeMagnitude)
}

func TestTracker_TrendMissingKeyword(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-01-31"))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-01"), map[string]int{"foo": 10}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-30"), map[string]int{"bar": 3}))

	got, err := tr.Trend(ctx, "example.com", "foo", 31)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, got.Direction)
	assert.Zero(t, got.ChangeMagnitude)

	got, err = tr.Trend(ctx, "nobody.test", "foo", 31)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, got.Direction)
}

func TestTracker_QueryWindow(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-01-31"))
	for _, d := range []string{"2024-01-20", "2023-12-30", "2023-12-31", "2024-01-31", "2024-02-01"} {
		require.NoError(t, tr.Append(ctx, "Example.COM", date(d), map[string]int{"foo": 1}))
	}

	entries, err := tr.Query(ctx, "example.com", 31)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Date.Format(DateLayout))
	}
	assert.Equal(t, []string{"2023-12-31", "2024-01-20", "2024-01-31"}, got)

	today, err := tr.Query(ctx, "example.com", 0)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	_, err = tr.Query(ctx, "example.com", -1)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestTracker_SameDayKeepsAppendOrder(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-01-31"))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-10"), map[string]int{"foo": 9}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-20"), map[string]int{"foo": 5}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-20"), map[string]int{"foo": 3}))

	got, err := tr.Trend(ctx, "example.com", "foo", 31)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NewestRank, "last appended entry of the newest date wins")
	assert.Equal(t, 6, got.ChangeMagnitude)
}

func TestTracker_AppendValidation(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil)
	d := date("2024-01-01")

	tests := map[string]struct {
		domain string
		date   time.Time
		ranks  map[string]int
	}{
		"empty domain":  {"  ", d, map[string]int{"foo": 1}},
		"zero date":     {"example.com", time.Time{}, map[string]int{"foo": 1}},
		"no ranks":      {"example.com", d, nil},
		"rank zero":     {"example.com", d, map[string]int{"foo": 0}},
		"empty keyword": {"example.com", d, map[string]int{" ": 2}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tr.Append(ctx, tc.domain, tc.date, tc.ranks)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
}

func TestTracker_EntriesAreCopies(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-01-31"))
	ranks := map[string]int{"foo": 4}
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-30"), ranks))
	ranks["foo"] = 99

	entries, err := tr.Query(ctx, "example.com", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Ranks["foo"])

	entries[0].Ranks["foo"] = 50
	again, err := tr.Query(ctx, "example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, 4, again[0].Ranks["foo"])
}

func TestTracker_TrendAll(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(nil, fixedClock("2024-01-31"))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-01"), map[string]int{"foo": 10, "bar": 2}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-30"), map[string]int{"foo": 4, "baz": 1}))

	all, err := tr.TrendAll(ctx, "example.com", 31)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, Improved, all["foo"].Direction)
	assert.Equal(t, Unchanged, all["bar"].Direction)
	assert.Equal(t, Unchanged, all["baz"].Direction)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, date("2024-02-29"), d)

	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "postgres")), mock
}

func TestSQLStore_Append(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rank_history (domain, entry_date, ranks) VALUES ($1, $2, $3)")).
		WithArgs("example.com", "2024-01-30", `{"foo":4}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Append(context.Background(), "example.com", Entry{
		Date:  time.Date(2024, 1, 30, 18, 0, 0, 0, time.UTC),
		Ranks: map[string]int{"foo": 4},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Entries(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"entry_date", "ranks"}).
		AddRow("2024-01-01", `{"foo":10}`).
		AddRow("2024-01-30", `{"foo":4,"bar":1}`)
	mock.ExpectQuery("SELECT entry_date, ranks").
		WithArgs("example.com", "2023-12-31", "2024-01-31").
		WillReturnRows(rows)

	entries, err := store.Entries(context.Background(), "example.com", date("2023-12-31"), date("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, date("2024-01-01"), entries[0].Date)
	assert.Equal(t, map[string]int{"foo": 4, "bar": 1}, entries[1].Ranks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_EntriesBadRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT entry_date, ranks").
		WillReturnRows(sqlmock.NewRows([]string{"entry_date", "ranks"}).AddRow("2024-01-01", `not json`))

	_, err := store.Entries(context.Background(), "example.com", date("2024-01-01"), date("2024-01-02"))
	assert.Error(t, err)
}

func TestSQLStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rank_history").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_TrackerOverMock(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT entry_date, ranks").
		WithArgs("example.com", "2023-12-31", "2024-01-31").
		WillReturnRows(sqlmock.NewRows([]string{"entry_date", "ranks"}).
			AddRow("2024-01-01", `{"foo":10}`).
			AddRow("2024-01-30", `{"foo":4}`))

	tr := NewTracker(store, fixedClock("2024-01-31"))
	got, err := tr.Trend(context.Background(), "example.com", "foo", 31)
	require.NoError(t, err)
	assert.Equal(t, Trend{Keyword: "foo", ChangeMagnitude: 6, Direction: Improved, OldestRank: 10, NewestRank: 4}, got)
}

func TestOpen_SQLite(t *testing.T) {
	store, err := Open("sqlite3", filepath.Join(t.TempDir(), "ranks.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	tr := NewTracker(store, fixedClock("2024-01-31"))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-01"), map[string]int{"foo": 10}))
	require.NoError(t, tr.Append(ctx, "example.com", date("2024-01-30"), map[string]int{"foo": 4}))

	got, err := tr.Trend(ctx, "example.com", "foo", 31)
	require.NoError(t, err)
	assert.Equal(t, Improved, got.Direction)
	assert.Equal(t, 6, got.ChangeMagnitude)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}
