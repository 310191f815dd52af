package sizing

import (
	"fmt"
	"strings"
)

// bodyRange is an inclusive height/weight window for one size under one
// gender's cut.
type bodyRange struct {
	heightMin, heightMax int
	weightMin, weightMax int
}

func (r bodyRange) contains(height, weight int) bool {
	return r.heightMin <= height && height <= r.heightMax &&
		r.weightMin <= weight && weight <= r.weightMax
}

func (r bodyRange) containsWithin(height, weight, tolCM, tolKG int) bool {
	return r.heightMin-tolCM <= height && height <= r.heightMax+tolCM &&
		r.weightMin-tolKG <= weight && weight <= r.weightMax+tolKG
}

type topBucket struct {
	size   string
	note   string
	male   bodyRange
	female bodyRange
}

type weightBucket struct {
	size       string
	equivalent string
	weightMin  int
	weightMax  int
}

type shoeBucket struct {
	eu     int
	footCM float64
}

// Charts are slices, not maps, so bucket iteration order is fixed and
// recommendations are deterministic.
var topChart = []topBucket{
	{"XS", "slim cut", bodyRange{155, 160, 45, 50}, bodyRange{150, 155, 40, 46}},
	{"S", "regular", bodyRange{160, 166, 50, 58}, bodyRange{155, 160, 46, 52}},
	{"M", "standard", bodyRange{166, 172, 58, 66}, bodyRange{160, 166, 52, 61}},
	{"L", "relaxed", bodyRange{172, 178, 66, 74}, bodyRange{166, 172, 61, 68}},
	{"XL", "", bodyRange{178, 184, 74, 82}, bodyRange{172, 178, 68, 76}},
	{"XXL", "", bodyRange{184, 190, 82, 92}, bodyRange{178, 184, 76, 86}},
}

var trouserChart = []weightBucket{
	{"XS", "26-27", 45, 50},
	{"S", "28", 50, 58},
	{"M", "29-30", 58, 65},
	{"L", "31-32", 65, 73},
	{"XL", "33-34", 73, 80},
	{"XXL", "35-36", 80, 90},
}

var dressChart = []weightBucket{
	{"XS", "", 40, 45},
	{"S", "", 45, 50},
	{"M", "", 50, 58},
	{"L", "", 58, 65},
	{"XL", "", 65, 75},
}

var shoeChart = []shoeBucket{
	{36, 22.5},
	{37, 23.0},
	{38, 23.5},
	{39, 24.5},
	{40, 25.0},
	{41, 25.5},
	{42, 26.0},
	{43, 26.5},
	{44, 27.0},
	{45, 27.5},
}

func topRange(b topBucket, g Gender) (bodyRange, bool) {
	switch g {
	case GenderMale:
		return b.male, true
	case GenderFemale:
		return b.female, true
	}
	return bodyRange{}, false
}

// gendersToCheck returns the chart cuts to try for a stated gender. An
// unspecified gender tries the male cut first, matching the advisory text
// shoppers see in stores.
func gendersToCheck(g Gender) []Gender {
	if g == GenderMale || g == GenderFemale {
		return []Gender{g}
	}
	return []Gender{GenderMale, GenderFemale}
}

// topChartBounds returns the global min/max height and weight across every
// bucket and both gender cuts.
func topChartBounds() (minH, maxH, minW, maxW int) {
	minH, minW = topChart[0].male.heightMin, topChart[0].male.weightMin
	for _, b := range topChart {
		for _, r := range []bodyRange{b.male, b.female} {
			if r.heightMin < minH {
				minH = r.heightMin
			}
			if r.heightMax > maxH {
				maxH = r.heightMax
			}
			if r.weightMin < minW {
				minW = r.weightMin
			}
			if r.weightMax > maxW {
				maxW = r.weightMax
			}
		}
	}
	return minH, maxH, minW, maxW
}

func weightChartBounds(chart []weightBucket) (minW, maxW int) {
	minW = chart[0].weightMin
	for _, b := range chart {
		if b.weightMin < minW {
			minW = b.weightMin
		}
		if b.weightMax > maxW {
			maxW = b.weightMax
		}
	}
	return minW, maxW
}

// ChartText renders the full size-chart reference for the size-guide reply.
func ChartText() string {
	var b strings.Builder
	b.WriteString("Size chart (tops)\n")
	b.WriteString("size | men (height/weight)      | women (height/weight)\n")
	for _, t := range topChart {
		fmt.Fprintf(&b, "%-4s | %d-%dcm / %d-%dkg | %d-%dcm / %d-%dkg\n",
			t.size,
			t.male.heightMin, t.male.heightMax, t.male.weightMin, t.male.weightMax,
			t.female.heightMin, t.female.heightMax, t.female.weightMin, t.female.weightMax)
	}
	b.WriteString("\nTrousers (by weight)\n")
	for _, t := range trouserChart {
		fmt.Fprintf(&b, "%-4s | %d-%dkg (waist %s)\n", t.size, t.weightMin, t.weightMax, t.equivalent)
	}
	b.WriteString("\nDresses and skirts (by weight)\n")
	for _, d := range dressChart {
		fmt.Fprintf(&b, "%-4s | %d-%dkg\n", d.size, d.weightMin, d.weightMax)
	}
	b.WriteString("\nFootwear (EU)\n")
	for _, s := range shoeChart {
		fmt.Fprintf(&b, "EU %d | foot %.1fcm\n", s.eu, s.footCM)
	}
	return b.String()
}
