package ledgerhttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeguard/timeguard/internal/ledger"
)

type stubVerifier struct {
	calls   atomic.Int32
	release chan struct{}
	report  ledger.Report
}

func (s *stubVerifier) Verify(ctx context.Context) (ledger.Report, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return s.report, nil
}

type stubExporter struct {
	entries []ledger.Entry
	last    ledger.ExportFilter
}

func (s *stubExporter) Export(ctx context.Context, filter ledger.ExportFilter) ([]ledger.Entry, error) {
	s.last = filter
	return s.entries, nil
}

func newTestHandler(v Verifier, e Exporter) (*Handler, http.Handler) {
	h := NewHandler(nil, v, e, 90*24*time.Hour)
	h.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/api", h.MountRoutes)
	return h, r
}

func sampleEntries() []ledger.Entry {
	ip := "10.0.0.1"
	return []ledger.Entry{
		{
			ID:           1,
			Timestamp:    time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
			ActorID:      2,
			Action:       ledger.ActionCreate,
			Table:        "time_entries",
			RecordID:     ledger.Int64(5),
			NewValues:    ledger.MustPayload(map[string]any{"start": "08:00"}),
			SourceIP:     &ip,
			PreviousHash: ledger.Genesis,
			EntryHash:    strings.Repeat("a", 64),
		},
	}
}

func TestVerifyReturnsReport(t *testing.T) {
	verifier := &stubVerifier{report: ledger.Report{Total: 3, ValidCount: 3, Invalid: []ledger.Problem{}}}
	_, router := newTestHandler(verifier, &stubExporter{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/audit/verify", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var report ledger.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Total)
	assert.False(t, report.ChainBroken)
}

func TestVerifyCollapsesConcurrentRequests(t *testing.T) {
	verifier := &stubVerifier{release: make(chan struct{}), report: ledger.Report{Total: 1, ValidCount: 1}}
	h, _ := newTestHandler(verifier, &stubExporter{})

	const callers = 5
	var wg sync.WaitGroup
	reports := make([]ledger.Report, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, _, err := h.verifyShared(context.Background())
			assert.NoError(t, err)
			reports[i] = report
		}(i)
	}
	require.Eventually(t, func() bool { return verifier.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(verifier.release)
	wg.Wait()

	assert.LessOrEqual(t, verifier.calls.Load(), int32(callers))
	for _, r := range reports {
		assert.Equal(t, 1, r.Total)
	}
}

func TestExportJSONDefaultsToLastWeek(t *testing.T) {
	exporter := &stubExporter{entries: sampleEntries()}
	_, router := newTestHandler(&stubVerifier{}, exporter)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/audit/export?table=time_entries", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-03-08", exporter.last.From.Format(dateLayout))
	assert.Equal(t, "2024-03-15", exporter.last.To.Format(dateLayout))
	assert.Equal(t, "time_entries", exporter.last.Table)

	var body struct {
		Count   int `json:"count"`
		Entries []struct {
			ID        int64           `json:"id"`
			NewValues json.RawMessage `json:"new_values"`
			OldValues json.RawMessage `json:"old_values"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.JSONEq(t, `{"data":{"start":"08:00"},"v":1}`, string(body.Entries[0].NewValues))
	assert.Equal(t, "null", string(body.Entries[0].OldValues))
}

func TestExportRejectsBadRanges(t *testing.T) {
	_, router := newTestHandler(&stubVerifier{}, &stubExporter{})

	for _, query := range []string{
		"from=2024-03-10&to=2024-03-01",
		"from=2023-01-01&to=2024-03-01",
		"from=10.03.2024",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/audit/export?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestExportCSV(t *testing.T) {
	_, router := newTestHandler(&stubVerifier{}, &stubExporter{entries: sampleEntries()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/audit/export.csv?from=2024-03-01&to=2024-03-15", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "audit-ledger-2024-03-01-2024-03-15.csv")

	reader := csv.NewReader(strings.NewReader(rr.Body.String()))
	reader.Comment = '#'
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"1", "2024-03-10T08:00:00Z", "2", "CREATE", "time_entries", "5",
		ledger.NullToken, `{"data":{"start":"08:00"},"v":1}`, "10.0.0.1", ledger.Genesis, strings.Repeat("a", 64),
	}, records[1])
}

func TestExportCSVRowsRehashOffline(t *testing.T) {
	entry := ledger.Entry{
		ID:           3,
		Timestamp:    time.Date(2024, 3, 11, 12, 30, 5, 0, time.UTC),
		ActorID:      4,
		Action:       ledger.ActionDelete,
		Table:        "time_entries",
		PreviousHash: strings.Repeat("b", 64),
	}
	entry.EntryHash = ledger.ComputeHash(entry)

	var buf strings.Builder
	require.NoError(t, writeLedgerCSV(&buf, ledger.ExportFilter{}, []ledger.Entry{entry}))
	reader := csv.NewReader(strings.NewReader(buf.String()))
	reader.Comment = '#'
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	row := records[1]
	assert.Equal(t, ledger.CanonicalString(entry), strings.Join(row[:10], "|"))
	assert.Equal(t, entry.EntryHash, row[10])
}

func TestExportCSVIsRateLimited(t *testing.T) {
	_, router := newTestHandler(&stubVerifier{}, &stubExporter{})

	var last int
	for i := 0; i <= rateLimit; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/audit/export.csv", nil))
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
