package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSmokeBase = "https://example.test/Smoke_Polygons/Shapefile/"
	testFireBase  = "https://example.test/Fire_Points/Shapefile/"
)

func TestURLBuilder_Build(t *testing.T) {
	b := NewURLBuilder(testSmokeBase, testFireBase)

	tests := []struct {
		name    string
		date    time.Time
		product Product
		want    string
	}{
		{
			name:    "smoke scenario",
			date:    time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC),
			product: Smoke,
			want:    testSmokeBase + "2024/08/hms_smoke20240810.zip",
		},
		{
			name:    "fire keeps extra separator",
			date:    time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC),
			product: Fire,
			want:    testFireBase + "/2024/08/hms_fire20240810.zip",
		},
		{
			name:    "zero padded month and day",
			date:    time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC),
			product: Smoke,
			want:    testSmokeBase + "2023/01/hms_smoke20230105.zip",
		},
		{
			name:    "december",
			date:    time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC),
			product: Fire,
			want:    testFireBase + "/2021/12/hms_fire20211231.zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(tt.date, tt.product)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLBuilder_AllDatesOfLeapYear(t *testing.T) {
	b := NewURLBuilder(testSmokeBase, testFireBase)
	d := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	for d.Year() == 2024 {
		smoke, err := b.Build(d, Smoke)
		require.NoError(t, err)
		fire, err := b.Build(d, Fire)
		require.NoError(t, err)

		stamp := d.Format("20060102")
		dir := d.Format("2006/01/")
		assert.Equal(t, testSmokeBase+dir+"hms_smoke"+stamp+".zip", smoke)
		assert.Equal(t, testFireBase+"/"+dir+"hms_fire"+stamp+".zip", fire)

		d = d.AddDate(0, 0, 1)
	}
}

func TestURLBuilder_Defaults(t *testing.T) {
	b := NewURLBuilder("", "")
	assert.Equal(t, DefaultSmokeBaseURL, b.SmokeBaseURL)
	assert.Equal(t, DefaultFireBaseURL, b.FireBaseURL)

	got, err := b.Build(time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC), Fire)
	require.NoError(t, err)
	assert.Equal(t, "https://satepsanone.nesdis.noaa.gov/pub/FIRE/web/HMS/Fire_Points/Shapefile//2024/08/hms_fire20240810.zip", got)
}

func TestURLBuilder_UnknownProduct(t *testing.T) {
	_, err := NewURLBuilder("", "").Build(time.Now(), Boundary)
	require.Error(t, err)
}

func TestURLBuilder_References(t *testing.T) {
	b := NewURLBuilder(testSmokeBase, testFireBase)
	dates := DateRange(time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC), 3)

	refs, err := b.References(dates, Smoke)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	for i, ref := range refs {
		assert.Equal(t, Smoke, ref.Product)
		assert.Equal(t, dates[i], ref.Date)
	}
	assert.Equal(t, testSmokeBase+"2024/08/hms_smoke20240808.zip", refs[2].Location)
}
