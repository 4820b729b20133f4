package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/jquants"
	"github.com/ternarybob/kabu/internal/models"
	"github.com/ternarybob/kabu/internal/storage"
)

func TestFillStatementGapsForwardThenBackward(t *testing.T) {
	statements := []models.Statement{
		{DisclosedDate: "2023-05-10", Equity: models.Float(100)},
		{DisclosedDate: "2024-05-10"},
		{DisclosedDate: "2025-05-09", Equity: models.Float(120), NetSales: models.Float(500)},
	}

	fillStatementGaps(statements)

	// Middle gap takes the earlier value, not the later one.
	assert.Equal(t, 100.0, statements[1].Equity.Or(0))
	assert.Equal(t, 120.0, statements[2].Equity.Or(0))

	// NetSales has no earlier value, so the first rows fill backward.
	assert.Equal(t, 500.0, statements[0].NetSales.Or(0))
	assert.Equal(t, 500.0, statements[1].NetSales.Or(0))
}

func TestFillStatementGapsAllAbsent(t *testing.T) {
	statements := []models.Statement{
		{DisclosedDate: "2024-05-10"},
		{DisclosedDate: "2025-05-09"},
	}

	fillStatementGaps(statements)

	assert.False(t, statements[0].Equity.Valid)
	assert.False(t, statements[1].Equity.Valid)
}

func testService(t *testing.T, handler http.Handler) (*Service, *storage.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := arbor.NewLogger()
	date := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	store := storage.NewStore(t.TempDir(), "", date, logger)
	client := jquants.NewClient(jquants.Credentials{RefreshToken: "refresh"}, jquants.WithBaseURL(server.URL))
	return NewService(client, store, 5, logger), store
}

func apiHandler(t *testing.T, statementCalls, quoteCalls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/auth_refresh":
			fmt.Fprint(w, `{"idToken":"id-token"}`)
		case "/fins/statements":
			statementCalls.Add(1)
			fmt.Fprintf(w, `{"statements":[
				{"DisclosedDate":"2025-05-09","LocalCode":"%[1]s","NetSales":"100","Equity":"50"},
				{"DisclosedDate":"2024-05-10","LocalCode":"%[1]s","NetSales":"90"}
			]}`, r.URL.Query().Get("code"))
		case "/prices/daily_quotes":
			quoteCalls.Add(1)
			fmt.Fprintf(w, `{"daily_quotes":[
				{"Date":"2025-05-12","Code":"%[1]s","AdjustmentClose":"2710"},
				{"Date":"2025-05-09","Code":"%[1]s","AdjustmentClose":"2701"}
			]}`, r.URL.Query().Get("code"))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestFetchStatementsSortsFillsAndCaches(t *testing.T) {
	var statementCalls, quoteCalls atomic.Int32
	svc, store := testService(t, apiHandler(t, &statementCalls, &quoteCalls))

	statements, err := svc.FetchStatements(context.Background(), "72030")
	require.NoError(t, err)
	require.Len(t, statements, 2)

	// Sorted ascending by disclosure date.
	assert.Equal(t, "2024-05-10", statements[0].DisclosedDate)
	assert.Equal(t, "2025-05-09", statements[1].DisclosedDate)

	// The older row has no Equity; backward fill supplies it.
	assert.Equal(t, 50.0, statements[0].Equity.Or(0))

	assert.True(t, store.HasStatements("72030"))

	// Second call is served from the cache.
	again, err := svc.FetchStatements(context.Background(), "72030")
	require.NoError(t, err)
	assert.Equal(t, statements, again)
	assert.Equal(t, int32(1), statementCalls.Load())
}

func TestFetchQuotesSortsAndCaches(t *testing.T) {
	var statementCalls, quoteCalls atomic.Int32
	svc, store := testService(t, apiHandler(t, &statementCalls, &quoteCalls))

	quotes, err := svc.FetchQuotes(context.Background(), "72030")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "2025-05-09", quotes[0].Date)
	assert.Equal(t, "2025-05-12", quotes[1].Date)
	assert.True(t, store.HasQuotes("72030"))

	_, err = svc.FetchQuotes(context.Background(), "72030")
	require.NoError(t, err)
	assert.Equal(t, int32(1), quoteCalls.Load())
}

func TestFetchAllSkipsFailingCodes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		switch r.URL.Path {
		case "/token/auth_refresh":
			fmt.Fprint(w, `{"idToken":"id-token"}`)
		case "/fins/statements":
			if code == "99990" {
				fmt.Fprint(w, `{"statements":[]}`)
				return
			}
			fmt.Fprintf(w, `{"statements":[{"DisclosedDate":"2025-05-09","LocalCode":"%s","NetSales":"100"}]}`, code)
		case "/prices/daily_quotes":
			fmt.Fprintf(w, `{"daily_quotes":[{"Date":"2025-05-09","Code":"%s","AdjustmentClose":"2701"}]}`, code)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	svc, store := testService(t, handler)
	statements, quotes, err := svc.FetchAll(context.Background(), []string{"72030", "99990", "67580"})
	require.NoError(t, err)

	assert.Len(t, statements, 2)
	assert.Len(t, quotes, 2)
	assert.Contains(t, statements, "72030")
	assert.Contains(t, statements, "67580")
	assert.NotContains(t, statements, "99990")

	consolidated, err := store.ReadConsolidated()
	require.NoError(t, err)
	assert.Len(t, consolidated, 2)
}

func TestFetchAllAllCodesFail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/auth_refresh":
			fmt.Fprint(w, `{"idToken":"id-token"}`)
		default:
			fmt.Fprint(w, `{"statements":[]}`)
		}
	})

	svc, _ := testService(t, handler)
	_, _, err := svc.FetchAll(context.Background(), []string{"72030"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data fetched")
}

func TestHistoryWindow(t *testing.T) {
	var statementCalls, quoteCalls atomic.Int32
	svc, store := testService(t, apiHandler(t, &statementCalls, &quoteCalls))

	from, to := svc.HistoryWindow()
	assert.Equal(t, store.Date(), to)
	assert.Equal(t, store.Date().AddDate(-5, 0, 0), from)
}
