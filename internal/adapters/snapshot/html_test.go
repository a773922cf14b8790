package snapshot

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "frontporch/internal/domain/snapshot"
)

func TestParseHTML_LegacySnapshot(t *testing.T) {
	f, err := os.Open("testdata/legacy_snapshot.html")
	require.NoError(t, err)
	defer f.Close()

	records, err := ParseHTML(f)
	require.NoError(t, err)

	want := []domain.Record{
		{Day: "Monday", Hour: 9, Name: "Ada Lovelace"},
		{Day: "Monday", Hour: 9, Name: "Dara O'Briain"},
		{Day: "Monday", Hour: 10, Name: "Zoé & Co"},
	}
	assert.Equal(t, want, records)
}

func TestParseHTML_UnavailableAnywhereInSlot(t *testing.T) {
	doc := `<div class="cell slot-wrapper">
		<button data-day="Friday" data-hour="18"></button>
		<em class="badge unavailable">closed</em>
		<span class="signup-name">Ghost</span>
	</div>`

	records, err := ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseHTML_BadHourSkipsSlot(t *testing.T) {
	doc := `<div class="slot-wrapper"><button data-day="Monday" data-hour="nine"></button>
		<span class="signup-name">A</span></div>`

	records, err := ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseHTML_NoSlots(t *testing.T) {
	records, err := ParseHTML(strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRead_SniffsFormat(t *testing.T) {
	jsonDoc := `  {"version":1,"exported_at":"2026-01-01T00:00:00Z","capacity":4,
		"signups":[{"day":"Tuesday","hour":8,"name":" Grace Hopper "}]}`

	records, err := Read(strings.NewReader(jsonDoc), FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{Day: "Tuesday", Hour: 8, Name: "Grace Hopper"}}, records)

	htmlDoc := `<div class="slot-wrapper"><button data-day="Sunday" data-hour="9"></button><span class="signup-name">A</span></div>`
	records, err = Read(strings.NewReader(htmlDoc), FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{Day: "Sunday", Hour: 9, Name: "A"}}, records)
}

func TestRead_UnknownFormat(t *testing.T) {
	_, err := Read(strings.NewReader("{}"), "xml")
	assert.ErrorIs(t, err, domain.ErrUnknownFormat)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile("testdata/does-not-exist.html", FormatAuto)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadFile_ByExtension(t *testing.T) {
	records, err := ReadFile("testdata/legacy_snapshot.html", FormatAuto)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
