package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roverstatus/internal"
)

func TestBlocksFromHTMLFixture(t *testing.T) {
	blob, err := os.ReadFile(filepath.Join("testdata", "opportunity-2009.html"))
	require.NoError(t, err)

	blocks, err := BlocksFromHTML(blob)
	require.NoError(t, err)
	require.Len(t, blocks, 13)

	records := ExtractRecords(blocks, nil)
	require.Len(t, records, 3)
	assert.Equal(t, internal.StatusRecord{Sol: 1799, Date: "8-NOV-2009", EnergyWh: 536, TauFactor: 0.372, DustFactor: 0.6335}, records[0])
	assert.Equal(t, internal.StatusRecord{Sol: 1792, Date: "27-OCT-2009", EnergyWh: 513, TauFactor: 0.398, DustFactor: 0.62}, records[1])
	assert.Equal(t, internal.StatusRecord{Sol: 1785, Date: "", EnergyWh: 491, TauFactor: 0.412, DustFactor: 0.608}, records[2])
}

func TestBlocksFromHTMLOnlyParagraphs(t *testing.T) {
	html := `<div>` + reportWithDate + `</div><p>intro</p><p>` + reportWithoutDate + `</p>`
	blocks, err := BlocksFromHTML([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", reportWithoutDate}, blocks)
}

func TestBlocksFromText(t *testing.T) {
	text := "Opportunity Update\n\nAs of Sol 1500 (Jan. 5, 2009), Opportunity's solar array energy production is\n450 watt-hours, with an atmospheric opacity (Tau) of 0.451 and a dust factor of 0.622.\n\nOdometry is 16 km.\n"
	blocks := BlocksFromText(text)
	require.Len(t, blocks, 3)
	assert.Equal(t, reportWithDate, blocks[1])
}

func TestBlocksFromMarkdown(t *testing.T) {
	md := "# Opportunity\n\n" + reportWithDate + "\n\n- drove 40 meters\n- imaged the rim\n\n" + reportWithoutDate + "\n"
	blocks, err := BlocksFromMarkdown([]byte(md))
	require.NoError(t, err)
	assert.Equal(t, []string{reportWithDate, reportWithoutDate}, blocks)
}

func TestBlocksFromPDF(t *testing.T) {
	blob, err := os.ReadFile(filepath.Join("testdata", "sol-1500.pdf"))
	require.NoError(t, err)

	blocks, err := BlocksFromPDF(blob)
	require.NoError(t, err)
	require.Equal(t, []string{reportWithDate, "Odometry is 16,125.02 meters (10.02 miles)."}, blocks)

	records := ExtractRecords(blocks, nil)
	require.Len(t, records, 1)
	assert.Equal(t, internal.StatusRecord{Sol: 1500, Date: "5-JAN-2009", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622}, records[0])
}

func TestBlocksFromPDFInvalid(t *testing.T) {
	_, err := BlocksFromPDF([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestBlocksFromInput(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/in/page.html", []byte("<p>"+reportWithDate+"</p>"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/in/page.md", []byte(reportWithDate+"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/in/page.txt", []byte(reportWithDate+"\n"), 0o644))

	for _, path := range []string{"/in/page.html", "/in/page.md", "/in/page.txt"} {
		t.Run(path, func(t *testing.T) {
			blocks, err := BlocksFromInput(fsys, internal.SourceAuto, path)
			require.NoError(t, err)
			assert.Equal(t, []string{reportWithDate}, blocks)
		})
	}

	blocks, err := BlocksFromInput(fsys, internal.SourceText, "/in/page.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"<p>" + reportWithDate + "</p>"}, blocks)

	_, err = BlocksFromInput(fsys, internal.SourceAuto, "/in/missing.html")
	assert.Error(t, err)
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, internal.SourceHTML, DetectKind("2009.HTM"))
	assert.Equal(t, internal.SourceMarkdown, DetectKind("notes.markdown"))
	assert.Equal(t, internal.SourcePDF, DetectKind("a/b/page.pdf"))
	assert.Equal(t, internal.SourceText, DetectKind("page"))
}

func TestParseSourceKind(t *testing.T) {
	kind, err := ParseSourceKind("")
	require.NoError(t, err)
	assert.Equal(t, internal.SourceAuto, kind)

	kind, err = ParseSourceKind(" HTML ")
	require.NoError(t, err)
	assert.Equal(t, internal.SourceHTML, kind)

	_, err = ParseSourceKind("docx")
	assert.Error(t, err)
}
