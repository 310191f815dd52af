package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsultant() *Consultant {
	return NewConsultant(DefaultThresholds())
}

func TestRecommendMissingData(t *testing.T) {
	c := newTestConsultant()

	_, err := c.Recommend(Measurements{HeightCM: 170}, GarmentTops)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = c.Recommend(Measurements{WeightKG: 60}, GarmentTops)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRecommendPerfectFitTop(t *testing.T) {
	c := newTestConsultant()

	rec, err := c.Recommend(Measurements{HeightCM: 162, WeightKG: 60, Gender: GenderUnspecified}, GarmentTops)
	require.NoError(t, err)
	require.False(t, rec.SpecialCase)
	require.NotEmpty(t, rec.Suggestions)

	sizes := make([]string, 0, len(rec.Suggestions))
	for _, s := range rec.Suggestions {
		assert.Equal(t, FitPerfect, s.Fit)
		sizes = append(sizes, s.Size)
	}
	assert.Contains(t, sizes, "M")
}

func TestRecommendPerfectDominatesAcceptable(t *testing.T) {
	c := newTestConsultant()

	// 168cm/62kg sits inside male M and within tolerance of male S and L.
	rec, err := c.Recommend(Measurements{HeightCM: 168, WeightKG: 62, Gender: GenderMale}, GarmentTops)
	require.NoError(t, err)
	require.NotEmpty(t, rec.Suggestions)
	for _, s := range rec.Suggestions {
		assert.Equal(t, FitPerfect, s.Fit)
	}
}

func TestRecommendSpecialCase(t *testing.T) {
	c := newTestConsultant()

	rec, err := c.Recommend(Measurements{HeightCM: 150, WeightKG: 100}, GarmentTops)
	require.NoError(t, err)
	assert.True(t, rec.SpecialCase)
	assert.Empty(t, rec.Suggestions)
	assert.NotEmpty(t, rec.Note)
}

func TestRecommendClosestFallback(t *testing.T) {
	c := newTestConsultant()

	// Taller and lighter than any bucket, but not far enough out of range
	// to become a special case.
	rec, err := c.Recommend(Measurements{HeightCM: 195, WeightKG: 85, Gender: GenderMale}, GarmentTops)
	require.NoError(t, err)
	require.Len(t, rec.Suggestions, 1)
	assert.Equal(t, FitClosest, rec.Suggestions[0].Fit)
	assert.Equal(t, "XXL", rec.Suggestions[0].Size)
	assert.NotEmpty(t, rec.Note)
}

func TestRecommendWeightOnlyCategories(t *testing.T) {
	c := newTestConsultant()

	rec, err := c.Recommend(Measurements{HeightCM: 170, WeightKG: 60}, GarmentTrousers)
	require.NoError(t, err)
	require.Len(t, rec.Suggestions, 1)
	assert.Equal(t, "M", rec.Suggestions[0].Size)
	assert.Equal(t, FitPerfect, rec.Suggestions[0].Fit)

	rec, err = c.Recommend(Measurements{HeightCM: 160, WeightKG: 48}, GarmentDresses)
	require.NoError(t, err)
	require.Len(t, rec.Suggestions, 1)
	assert.Equal(t, "S", rec.Suggestions[0].Size)
}

func TestRecommendFootwearEstimated(t *testing.T) {
	c := newTestConsultant()

	rec, err := c.Recommend(Measurements{HeightCM: 170, WeightKG: 65}, GarmentFootwear)
	require.NoError(t, err)
	require.Len(t, rec.Suggestions, 1)
	assert.Equal(t, FitEstimated, rec.Suggestions[0].Fit)
	// 170 * 0.15 = 25.5cm foot, EU 41.
	assert.Equal(t, "EU 41", rec.Suggestions[0].Size)
	assert.InDelta(t, 25.5, rec.FootLengthCM, 0.01)
}

func TestExtractMeasurements(t *testing.T) {
	cases := []struct {
		text   string
		height int
		weight int
		gender Gender
	}{
		{"i'm 1m65 and 60kg", 165, 60, GenderUnspecified},
		{"height 172, weight 70, male", 172, 70, GenderMale},
		{"165cm 52kg for a girl", 165, 52, GenderFemale},
		{"1.58m tall", 158, 0, GenderUnspecified},
		{"what size fits me", 0, 0, GenderUnspecified},
	}
	for _, tc := range cases {
		m := ExtractMeasurements(tc.text)
		assert.Equal(t, tc.height, m.HeightCM, "height in %q", tc.text)
		assert.Equal(t, tc.weight, m.WeightKG, "weight in %q", tc.text)
		assert.Equal(t, tc.gender, m.Gender, "gender in %q", tc.text)
	}
}

func TestDetectGarment(t *testing.T) {
	assert.Equal(t, GarmentTops, DetectGarment("what size hoodie should i get"))
	assert.Equal(t, GarmentTrousers, DetectGarment("jeans size for 70kg"))
	assert.Equal(t, GarmentDresses, DetectGarment("a dress for a wedding"))
	assert.Equal(t, GarmentFootwear, DetectGarment("sneakers size please"))
	assert.Equal(t, GarmentTops, DetectGarment("just browsing"))
}

func TestChartTextMentionsEverySize(t *testing.T) {
	text := ChartText()
	for _, size := range []string{"XS", "S", "M", "L", "XL", "XXL"} {
		assert.Contains(t, text, size)
	}
	assert.Contains(t, text, "EU 45")
}
