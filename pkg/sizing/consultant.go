package sizing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

type Garment string

const (
	GarmentTops     Garment = "tops"
	GarmentTrousers Garment = "trousers"
	GarmentDresses  Garment = "dresses"
	GarmentFootwear Garment = "footwear"
)

type Fit string

const (
	FitPerfect    Fit = "perfect"
	FitAcceptable Fit = "acceptable"
	FitClosest    Fit = "closest"
	FitEstimated  Fit = "estimated"
)

var (
	// ErrInsufficientData means height or weight is missing; the caller
	// should ask the shopper for measurements.
	ErrInsufficientData = errors.New("sizing: height and weight are required")
	// ErrNoMatch means no bucket could be matched or approximated.
	ErrNoMatch = errors.New("sizing: no suitable size found")
)

// Measurements is body data parsed from a shopper's message. Zero values
// mean "not stated".
type Measurements struct {
	HeightCM int    `json:"height_cm"`
	WeightKG int    `json:"weight_kg"`
	Gender   Gender `json:"gender"`
}

// Suggestion is one ranked size with the quality of its fit.
type Suggestion struct {
	Size       string `json:"size"`
	Fit        Fit    `json:"fit"`
	Note       string `json:"note,omitempty"`
	GenderUsed Gender `json:"gender_used,omitempty"`
}

// Recommendation is the outcome of a consultation. When SpecialCase is set
// Suggestions is empty: the measurements fall outside every chart and the
// shopper must be offered human contact instead of a guessed size.
type Recommendation struct {
	Suggestions  []Suggestion `json:"suggestions"`
	SpecialCase  bool         `json:"special_case,omitempty"`
	Note         string       `json:"note,omitempty"`
	FootLengthCM float64      `json:"foot_length_cm,omitempty"`
}

// Thresholds holds the calibrated cutoffs for out-of-range detection and
// nearest-bucket scoring. The upper (overweight) and lower (underweight)
// margins are asymmetric.
type Thresholds struct {
	HeightWeight          float64
	WeightWeight          float64
	OverweightMarginKG    int
	ShortHeavyHeightCM    int
	ShortHeavyWeightKG    int
	LowHeavyHeightCM      int
	LowHeavyWeightKG      int
	HeightMarginCM        int
	UnderweightMarginKG   int
	WeightOnlyMarginKG    int
	ToleranceCM           int
	ToleranceKG           int
	FootLengthHeightRatio float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HeightWeight:          0.6,
		WeightWeight:          0.4,
		OverweightMarginKG:    5,
		ShortHeavyHeightCM:    155,
		ShortHeavyWeightKG:    70,
		LowHeavyHeightCM:      160,
		LowHeavyWeightKG:      75,
		HeightMarginCM:        10,
		UnderweightMarginKG:   8,
		WeightOnlyMarginKG:    10,
		ToleranceCM:           5,
		ToleranceKG:           5,
		FootLengthHeightRatio: 0.15,
	}
}

// Consultant maps measurements to size suggestions. It is stateless and
// safe for concurrent use.
type Consultant struct {
	thresholds Thresholds
}

func NewConsultant(t Thresholds) *Consultant {
	return &Consultant{thresholds: t}
}

// Recommend ranks sizes for the given garment. Perfect matches strictly
// dominate acceptable ones; when nothing matches it falls back to the
// nearest bucket, unless the measurements are flagged as outside the
// normal range entirely.
func (c *Consultant) Recommend(m Measurements, garment Garment) (*Recommendation, error) {
	if m.HeightCM <= 0 || m.WeightKG <= 0 {
		return nil, ErrInsufficientData
	}

	if garment == GarmentFootwear {
		return c.recommendShoe(m), nil
	}

	var suggestions []Suggestion
	switch garment {
	case GarmentTops:
		suggestions = c.matchTops(m)
	case GarmentTrousers:
		suggestions = matchWeightChart(trouserChart, m.WeightKG)
	case GarmentDresses:
		suggestions = matchWeightChart(dressChart, m.WeightKG)
	default:
		suggestions = c.matchTops(m)
		garment = GarmentTops
	}

	if len(suggestions) == 0 {
		if c.outsideNormalRange(m, garment) {
			return &Recommendation{
				SpecialCase: true,
				Note: fmt.Sprintf("at %dcm and %dkg the standard chart does not apply; "+
					"please contact the shop for a personal fitting", m.HeightCM, m.WeightKG),
			}, nil
		}
		closest := c.closestBucket(m, garment)
		if closest == nil {
			return nil, ErrNoMatch
		}
		return &Recommendation{
			Suggestions: []Suggestion{*closest},
			Note:        "suggested by nearest chart distance; trying the item on first is recommended",
		}, nil
	}

	// Perfect fits strictly dominate acceptable ones.
	var perfect []Suggestion
	for _, s := range suggestions {
		if s.Fit == FitPerfect {
			perfect = append(perfect, s)
		}
	}
	if len(perfect) > 0 {
		suggestions = perfect
	}
	return &Recommendation{Suggestions: suggestions}, nil
}

func (c *Consultant) matchTops(m Measurements) []Suggestion {
	var out []Suggestion
	for _, b := range topChart {
		for _, g := range gendersToCheck(m.Gender) {
			r, ok := topRange(b, g)
			if !ok {
				continue
			}
			if r.contains(m.HeightCM, m.WeightKG) {
				out = append(out, Suggestion{Size: b.size, Fit: FitPerfect, Note: b.note, GenderUsed: g})
				break
			}
			if r.containsWithin(m.HeightCM, m.WeightKG, c.thresholds.ToleranceCM, c.thresholds.ToleranceKG) {
				out = append(out, Suggestion{Size: b.size, Fit: FitAcceptable, Note: b.note, GenderUsed: g})
			}
		}
	}
	return out
}

// matchWeightChart has no tolerance band: weight-only categories return
// perfect fits or nothing.
func matchWeightChart(chart []weightBucket, weight int) []Suggestion {
	var out []Suggestion
	for _, b := range chart {
		if b.weightMin <= weight && weight <= b.weightMax {
			out = append(out, Suggestion{Size: b.size, Fit: FitPerfect, Note: waistNote(b)})
		}
	}
	return out
}

func waistNote(b weightBucket) string {
	if b.equivalent == "" {
		return ""
	}
	return "waist size " + b.equivalent
}

func (c *Consultant) recommendShoe(m Measurements) *Recommendation {
	footLength := float64(m.HeightCM) * c.thresholds.FootLengthHeightRatio

	best := shoeChart[0]
	minDiff := math.Abs(best.footCM - footLength)
	for _, s := range shoeChart[1:] {
		if diff := math.Abs(s.footCM - footLength); diff < minDiff {
			minDiff = diff
			best = s
		}
	}
	return &Recommendation{
		Suggestions:  []Suggestion{{Size: "EU " + strconv.Itoa(best.eu), Fit: FitEstimated}},
		Note:         "shoe size estimated from height; measure the foot for an exact fit",
		FootLengthCM: math.Round(footLength*10) / 10,
	}
}

func (c *Consultant) outsideNormalRange(m Measurements, garment Garment) bool {
	t := c.thresholds
	switch garment {
	case GarmentTops:
		minH, maxH, minW, maxW := topChartBounds()
		if m.WeightKG > maxW+t.OverweightMarginKG {
			return true
		}
		if m.HeightCM < t.ShortHeavyHeightCM && m.WeightKG > t.ShortHeavyWeightKG {
			return true
		}
		if m.HeightCM < t.LowHeavyHeightCM && m.WeightKG > t.LowHeavyWeightKG {
			return true
		}
		heightOutside := m.HeightCM < minH-t.HeightMarginCM || m.HeightCM > maxH+t.HeightMarginCM
		weightOutside := m.WeightKG < minW-t.UnderweightMarginKG || m.WeightKG > maxW+t.OverweightMarginKG
		return heightOutside || weightOutside
	case GarmentTrousers:
		minW, maxW := weightChartBounds(trouserChart)
		return m.WeightKG > maxW+t.WeightOnlyMarginKG || m.WeightKG < minW-t.WeightOnlyMarginKG
	case GarmentDresses:
		minW, maxW := weightChartBounds(dressChart)
		return m.WeightKG > maxW+t.WeightOnlyMarginKG || m.WeightKG < minW-t.WeightOnlyMarginKG
	}
	return false
}

func (c *Consultant) closestBucket(m Measurements, garment Garment) *Suggestion {
	t := c.thresholds
	switch garment {
	case GarmentTops:
		var best *Suggestion
		minDist := math.Inf(1)
		for _, b := range topChart {
			for _, g := range gendersToCheck(m.Gender) {
				r, ok := topRange(b, g)
				if !ok {
					continue
				}
				dist := t.HeightWeight*rangeDistance(m.HeightCM, r.heightMin, r.heightMax) +
					t.WeightWeight*rangeDistance(m.WeightKG, r.weightMin, r.weightMax)
				if dist < minDist {
					minDist = dist
					best = &Suggestion{Size: b.size, Fit: FitClosest, Note: b.note, GenderUsed: g}
				}
			}
		}
		return best
	case GarmentTrousers:
		return closestWeightBucket(trouserChart, m.WeightKG)
	case GarmentDresses:
		return closestWeightBucket(dressChart, m.WeightKG)
	}
	return nil
}

func closestWeightBucket(chart []weightBucket, weight int) *Suggestion {
	var best *Suggestion
	minDist := math.Inf(1)
	for _, b := range chart {
		dist := rangeDistance(weight, b.weightMin, b.weightMax)
		if dist < minDist {
			minDist = dist
			best = &Suggestion{Size: b.size, Fit: FitClosest, Note: waistNote(b)}
		}
	}
	return best
}

// rangeDistance is 0 inside [lo, hi] and the distance to the nearest bound
// outside it.
func rangeDistance(v, lo, hi int) float64 {
	if lo <= v && v <= hi {
		return 0
	}
	return math.Min(math.Abs(float64(v-lo)), math.Abs(float64(v-hi)))
}
