package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raidlens/raidlens/internal/core"
)

// newPageServer answers the events query from a map keyed by startTime.
func newPageServer(t *testing.T, pages map[int64]core.EventPage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		start := int64(req.Variables["startTime"].(float64))
		page, ok := pages[start]
		require.True(t, ok, "unexpected startTime %d", start)

		data, err := json.Marshal(map[string]any{
			"reportData": map[string]any{"report": map[string]any{"events": page}},
		})
		require.NoError(t, err)
		_, _ = fmt.Fprintf(w, `{"data": %s}`, data)
	}))
}

func collectPages(t *testing.T, pager *Pager, q ReportQuery) []core.EventPage {
	t.Helper()
	var pages []core.EventPage
	require.NoError(t, pager.EachPage(context.Background(), q, func(page core.EventPage) error {
		pages = append(pages, page)
		return nil
	}))
	return pages
}

func TestPagerAdvancesCursorToEnd(t *testing.T) {
	server := newPageServer(t, map[int64]core.EventPage{
		0:    {Events: []core.Event{{Timestamp: 10}}, NextPageTimestamp: 5000},
		5000: {Events: []core.Event{{Timestamp: 5010}}, NextPageTimestamp: 9000},
		9000: {Events: []core.Event{{Timestamp: 9010}}},
	})
	defer server.Close()

	pager := &Pager{Client: newTestClient(t, server)}
	pages := collectPages(t, pager, ReportQuery{Code: "abc", FightID: 1, EndTime: 10000, DataType: "Casts"})

	require.Len(t, pages, 3)
	require.Equal(t, int64(10), pages[0].Events[0].Timestamp)
	require.Equal(t, int64(9010), pages[2].Events[0].Timestamp)
}

func TestPagerStuckCursorStopsAfterPage(t *testing.T) {
	server := newPageServer(t, map[int64]core.EventPage{
		0:    {Events: []core.Event{{Timestamp: 10}}, NextPageTimestamp: 5000},
		5000: {Events: []core.Event{{Timestamp: 5010}}, NextPageTimestamp: 5000},
	})
	defer server.Close()

	pager := &Pager{Client: newTestClient(t, server)}
	pages := collectPages(t, pager, ReportQuery{Code: "abc", EndTime: 10000})

	// The page carrying the stuck cursor is still delivered.
	require.Len(t, pages, 2)
}

func TestPagerPageCeiling(t *testing.T) {
	// Every page advances by one and never terminates.
	pages := make(map[int64]core.EventPage)
	for i := int64(0); i < 100; i++ {
		pages[i] = core.EventPage{Events: []core.Event{{Timestamp: i}}, NextPageTimestamp: i + 1}
	}
	server := newPageServer(t, pages)
	defer server.Close()

	pager := &Pager{Client: newTestClient(t, server), PageLimit: 3}
	collected := collectPages(t, pager, ReportQuery{Code: "abc", EndTime: 10000})
	require.Len(t, collected, 3)
}

func TestPagerSkipsEmptyPages(t *testing.T) {
	server := newPageServer(t, map[int64]core.EventPage{
		0:    {NextPageTimestamp: 5000},
		5000: {Events: []core.Event{{Timestamp: 5010}}},
	})
	defer server.Close()

	pager := &Pager{Client: newTestClient(t, server)}
	pages := collectPages(t, pager, ReportQuery{Code: "abc", EndTime: 10000})
	require.Len(t, pages, 1)
}

func TestFetchEventsFlattens(t *testing.T) {
	server := newPageServer(t, map[int64]core.EventPage{
		0:    {Events: []core.Event{{Timestamp: 1}, {Timestamp: 2}}, NextPageTimestamp: 5000},
		5000: {Events: []core.Event{{Timestamp: 5001}}},
	})
	defer server.Close()

	pager := &Pager{Client: newTestClient(t, server)}
	events, pageCount, err := pager.FetchEvents(context.Background(), ReportQuery{Code: "abc", EndTime: 10000})
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, 2, pageCount)
}

func TestClientFights(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"reportData": {"report": {"fights": [
			{"id": 1, "name": "Ragnaros", "startTime": 1000, "endTime": 181000, "kill": true},
			{"id": 2, "name": "Onyxia", "startTime": 200000, "endTime": 290000, "kill": false}
		]}}}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	fights, err := c.Fights(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, fights, 2)
	require.Equal(t, "Ragnaros", fights[0].EncounterName)
	require.Equal(t, int64(180000), fights[0].DurationMs())
	require.False(t, fights[1].Kill)
}
