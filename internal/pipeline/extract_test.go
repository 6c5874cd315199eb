package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roverstatus/internal"
)

const (
	reportWithDate    = "As of Sol 1500 (Jan. 5, 2009), Opportunity's solar array energy production is 450 watt-hours, with an atmospheric opacity (Tau) of 0.451 and a dust factor of 0.622."
	reportWithoutDate = "As of Sol 1500, Opportunity's solar array energy production is 450 watt-hours, with an atmospheric opacity (Tau) of 0.451 and a dust factor of 0.622."
)

func sp(v string) *string { return &v }

func TestExtractRecordReference(t *testing.T) {
	rec, err := ExtractRecord(reportWithDate)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, internal.StatusRecord{Sol: 1500, Date: "5-JAN-2009", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622}, *rec)
}

func TestExtractRecordWithoutDate(t *testing.T) {
	rec, err := ExtractRecord(reportWithoutDate)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, internal.StatusRecord{Sol: 1500, Date: "", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622}, *rec)
}

func TestExtractRecordVariants(t *testing.T) {
	cases := []struct {
		name  string
		block string
		want  *internal.StatusRecord
	}{
		{
			name:  "case insensitive",
			block: "as of sol 2001 (Aug. 4, 2010), the ENERGY production was 312 WATT-HOURS; opacity (TAU) of 0.9 and a DUST FACTOR OF 0.5123.",
			want:  &internal.StatusRecord{Sol: 2001, Date: "4-AUG-2010", EnergyWh: 312, TauFactor: 0.9, DustFactor: 0.5123},
		},
		{
			name:  "unparseable date keeps record",
			block: "As of Sol 1500 (sometime in winter), energy production is 450 watt-hours, with an atmospheric opacity (Tau) of 0.451 and a dust factor of 0.622.",
			want:  &internal.StatusRecord{Sol: 1500, Date: "", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622},
		},
		{
			name:  "yearless date",
			block: "As of Sol 1500 (Nov. 24), energy production is 450 watt-hours, with an atmospheric opacity (Tau) of 0.451 and a dust factor of 0.622.",
			want:  &internal.StatusRecord{Sol: 1500, Date: "", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622},
		},
		{
			name:  "clean arrays",
			block: "As of Sol 3000 (May 1, 2012), energy production is 1010 watt-hours, with an atmospheric opacity (Tau) of 0.5 and a dust factor of 1.0.",
			want:  &internal.StatusRecord{Sol: 3000, Date: "1-MAY-2012", EnergyWh: 1010, TauFactor: 0.5, DustFactor: 1.0},
		},
		{
			name:  "surrounding prose",
			block: "Spirit is silent. As of Sol 1500 (Jan. 5, 2009), production is 450 watt-hours with opacity (Tau) of 0.451 and a dust factor of 0.622. More later.",
			want:  &internal.StatusRecord{Sol: 1500, Date: "5-JAN-2009", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622},
		},
		{
			name:  "non-breaking spaces",
			block: "As of Sol\u00a01500 (Jan.\u00a05,\u00a02009), production is 450\u00a0watt-hours with opacity (Tau)\u00a0of 0.451 and a dust factor of 0.622.",
			want:  &internal.StatusRecord{Sol: 1500, Date: "5-JAN-2009", EnergyWh: 450, TauFactor: 0.451, DustFactor: 0.622},
		},
		{
			name:  "line break between anchors",
			block: "As of Sol 1500, production is 450 watt-hours with\nopacity (Tau) of 0.451 and a dust factor of 0.622.",
		},
		{
			name:  "line separator between anchors",
			block: "As of Sol 1500, production is 450 watt-hours with\u2028opacity (Tau) of 0.451 and a dust factor of 0.622.",
		},
		{
			name:  "three digit sol",
			block: "As of Sol 850 (June 1, 2006), production is 450 watt-hours with opacity (Tau) of 0.451 and a dust factor of 0.622.",
		},
		{
			name:  "missing final period",
			block: "As of Sol 1500, production is 450 watt-hours with opacity (Tau) of 0.451 and a dust factor of 0.622",
		},
		{
			name:  "energy not separated by whitespace",
			block: "As of Sol 1500, production is 450watt-hours with opacity (Tau) of 0.451 and a dust factor of 0.622.",
		},
		{
			name:  "tau without decimals",
			block: "As of Sol 1500, production is 450 watt-hours with opacity (Tau) of 1 and a dust factor of 0.622.",
		},
		{
			name:  "unrelated prose",
			block: "Odometry is 18,237.39 meters (11.33 miles).",
		},
		{
			name:  "empty",
			block: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := ExtractRecord(tc.block)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, *tc.want, *rec)
		})
	}
}

func TestExtractRecordRequiresEveryAnchor(t *testing.T) {
	anchors := []string{"As of Sol", "watt-hours", "(Tau) of", "dust factor of"}
	for _, anchor := range anchors {
		t.Run(anchor, func(t *testing.T) {
			block := strings.Replace(reportWithDate, anchor, "something else", 1)
			rec, err := ExtractRecord(block)
			require.NoError(t, err)
			assert.Nil(t, rec)
		})
	}
}

func TestBuildRecordInconsistentCapture(t *testing.T) {
	cases := []struct {
		name     string
		captures []*string
	}{
		{name: "sol not numeric", captures: []*string{nil, sp("15O0"), nil, nil, sp("450"), sp("0.451"), sp("0.622")}},
		{name: "wh missing", captures: []*string{nil, sp("1500"), nil, nil, nil, sp("0.451"), sp("0.622")}},
		{name: "tau not numeric", captures: []*string{nil, sp("1500"), nil, nil, sp("450"), sp("0.4.1"), sp("0.622")}},
		{name: "short capture slice", captures: []*string{nil, sp("1500")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildRecord(tc.captures)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInconsistentCapture))
		})
	}
}

func TestExtractRecordsKeepsOrder(t *testing.T) {
	blocks := []string{}
	wantSols := []int{}
	for i := 0; i < 13; i++ {
		if i%4 == 1 && len(wantSols) < 3 {
			sol := 1800 - i
			wantSols = append(wantSols, sol)
			blocks = append(blocks, fmt.Sprintf("As of Sol %d, production is %d watt-hours, with opacity (Tau) of 0.4 and a dust factor of 0.6.", sol, 400+i))
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Paragraph %d about the crater rim.", i))
	}

	records := ExtractRecords(blocks, func(int, error) { t.Fatal("unexpected skip") })
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, wantSols[i], rec.Sol)
	}
}

func TestExtractRecordsNoMatches(t *testing.T) {
	records := ExtractRecords([]string{"a", "b"}, nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
