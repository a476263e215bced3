package sheetfaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetFixture = `Niharika Maternal Health FAQ,,,,
,,,,
Keywords,Questions (Bangla),Questions (English),Answers (Bangla),Answers (English)
"neck pain, headache",গর্ভাবস্থায় ঘাড়ে ব্যথা কেন হয়?,Why do I have neck pain and headaches during pregnancy?,গর্ভাবস্থায় হরমোনের পরিবর্তনের কারণে,During pregnancy hormonal changes and posture shifts can cause neck pain and headache. Rest and hydration usually help.
"fever, cough",জ্বর হলে কি করব?,What should I do for a fever?,বিশ্রাম নিন এবং পানি পান করুন,Rest and fluids are advised for mild fever.
"",খালি সারি,Row without keywords is skipped,---,---
`

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc := NewService(
		WithCSVURL(server.URL),
		WithSheetURL("https://docs.google.com/spreadsheets/d/test"),
	)
	return svc, server
}

func TestLookupMatchesRelevantRow(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sheetFixture))
	})

	results, err := svc.Lookup(context.Background(), "neck pain headache pregnancy", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	item := results[0]
	assert.Equal(t, "Why do I have neck pain and headaches during pregnancy?", item.Question)
	assert.Contains(t, item.Answer, "hormonal changes")
	assert.Equal(t, "Pregnant women", item.Population)
	require.Len(t, item.Sources, 1)
	assert.Equal(t, SourcePMID, item.Sources[0].PMID)
	assert.Equal(t, "Niharika FAQ: neck pain, headache", item.Sources[0].Title)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/test", item.Sources[0].URL)
}

func TestLookupNoMatchReturnsEmpty(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sheetFixture))
	})

	results, err := svc.Lookup(context.Background(), "quantum chromodynamics", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLookupRespectsMaxResults(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sheetFixture))
	})

	results, err := svc.Lookup(context.Background(), "neck pain headache pregnancy", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLookupSheetDown(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := svc.Lookup(context.Background(), "pregnancy", 5)
	assert.ErrorIs(t, err, ErrSheetUnavailable)
}

func TestLookupMalformedCSV(t *testing.T) {
	// A bare quote mid-file corrupts the export; partial rows must not be
	// served as a successful result.
	malformed := `Keywords,Questions (Bangla),Questions (English),Answers (Bangla),Answers (English)
"neck pain, headache",q,Why neck pain?,a,During pregnancy posture shifts cause it.
"broken "quote" row,q,x,y,z
`
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(malformed))
	})

	_, err := svc.Lookup(context.Background(), "neck pain pregnancy", 5)
	assert.ErrorIs(t, err, ErrSheetUnavailable)
}

func TestLookupMissingHeaderRow(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a,b,c,d,e\n1,2,3,4,5\n"))
	})

	_, err := svc.Lookup(context.Background(), "pregnancy", 5)
	assert.ErrorIs(t, err, ErrSheetUnavailable)
}

func TestLoadEntriesSkipsDecorationAndBlankRows(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sheetFixture))
	})

	entries, err := svc.loadEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "neck pain, headache", entries[0].Keywords)
	assert.Equal(t, "fever, cough", entries[1].Keywords)
}
