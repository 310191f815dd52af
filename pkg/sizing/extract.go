package sizing

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Height phrasings in rough order of specificity: "1m65", "1.65m",
	// "165cm", "height 165" / "tall 165".
	heightMetric  = regexp.MustCompile(`\b(\d)m(\d{1,2})\b`)
	heightDecimal = regexp.MustCompile(`\b(\d)\.(\d{1,2})m\b`)
	heightCM      = regexp.MustCompile(`\b(\d{2,3})\s*cm\b`)
	heightWord    = regexp.MustCompile(`\b(?:height|tall|high)\s*(?:is\s*)?(\d{2,3})\b`)

	weightKG   = regexp.MustCompile(`\b(\d{2,3})\s*kg\b`)
	weightWord = regexp.MustCompile(`\b(?:weight|weigh|weighs)\s*(?:is\s*)?(\d{2,3})\b`)

	maleWords   = regexp.MustCompile(`\b(male|man|men|mens|boy|guy|him|his)\b`)
	femaleWords = regexp.MustCompile(`\b(female|woman|women|womens|girl|lady|her|hers)\b`)
)

// ExtractMeasurements pulls height, weight and gender out of free text.
// Missing values stay zero; gender defaults to unspecified.
func ExtractMeasurements(text string) Measurements {
	text = strings.ToLower(text)
	m := Measurements{Gender: GenderUnspecified}

	if g := heightMetric.FindStringSubmatch(text); g != nil {
		meters, _ := strconv.Atoi(g[1])
		rest := g[2]
		if len(rest) == 1 {
			rest += "0"
		}
		cm, _ := strconv.Atoi(rest)
		m.HeightCM = meters*100 + cm
	} else if g := heightDecimal.FindStringSubmatch(text); g != nil {
		meters, _ := strconv.Atoi(g[1])
		rest := g[2]
		if len(rest) == 1 {
			rest += "0"
		}
		cm, _ := strconv.Atoi(rest)
		m.HeightCM = meters*100 + cm
	} else if g := heightCM.FindStringSubmatch(text); g != nil {
		m.HeightCM, _ = strconv.Atoi(g[1])
	} else if g := heightWord.FindStringSubmatch(text); g != nil {
		m.HeightCM, _ = strconv.Atoi(g[1])
	}

	if g := weightKG.FindStringSubmatch(text); g != nil {
		m.WeightKG, _ = strconv.Atoi(g[1])
	} else if g := weightWord.FindStringSubmatch(text); g != nil {
		m.WeightKG, _ = strconv.Atoi(g[1])
	}

	if maleWords.MatchString(text) {
		m.Gender = GenderMale
	} else if femaleWords.MatchString(text) {
		m.Gender = GenderFemale
	}
	return m
}

var garmentWordLists = []struct {
	garment Garment
	words   []string
}{
	{GarmentTops, []string{"shirt", "t-shirt", "tshirt", "tee", "polo", "hoodie", "sweater", "cardigan", "jacket", "coat", "top"}},
	{GarmentTrousers, []string{"jeans", "jean", "pants", "trousers", "joggers", "jogger", "shorts", "leggings"}},
	{GarmentDresses, []string{"dress", "skirt", "gown"}},
	{GarmentFootwear, []string{"shoes", "shoe", "sneakers", "sneaker", "boots", "sandals", "sandal", "slippers", "heels"}},
}

// DetectGarment picks the garment category a message is about. Tops is the
// default when nothing matches.
func DetectGarment(text string) Garment {
	text = strings.ToLower(text)
	for _, wl := range garmentWordLists {
		for _, w := range wl.words {
			if containsWord(text, w) {
				return wl.garment
			}
		}
	}
	return GarmentTops
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '-'
}
