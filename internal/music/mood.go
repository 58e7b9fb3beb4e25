package music

import (
	"strconv"
	"strings"
)

// Quadrant thresholds on the 0..1 audio feature scale.
const (
	highEnergyThreshold  = 0.6
	highValenceThreshold = 0.5
)

// Targets are optional target audio features for recommendations.
// A nil field means "no preference".
type Targets struct {
	Energy  *float64
	Valence *float64
}

// Empty reports whether no target is set.
func (t Targets) Empty() bool {
	return t.Energy == nil && t.Valence == nil
}

// MoodCategory is an energy/valence quadrant.
type MoodCategory struct {
	Name        string
	Energy      float64
	Valence     float64
	Description string
}

// Categorize places an energy/valence pair in one of four quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
func Categorize(energy, valence float64) MoodCategory {
	highEnergy := energy > highEnergyThreshold
	highValence := valence > highValenceThreshold

	c := MoodCategory{Energy: energy, Valence: valence}
	switch {
	case highEnergy && highValence:
		c.Name = "Upbeat Party"
		c.Description = "High-energy, positive vibes - perfect for dancing and celebrations"
	case highEnergy && !highValence:
		c.Name = "Intense & Dark"
		c.Description = "Intense, driving energy with darker emotional tones"
	case !highEnergy && highValence:
		c.Name = "Chill & Happy"
		c.Description = "Relaxed and uplifting - great for unwinding"
	default:
		c.Name = "Reflective & Melancholy"
		c.Description = "Contemplative and introspective - ideal for quiet moments"
	}
	return c
}

var energyWords = map[string]float64{
	"very low":  0.1,
	"low":       0.25,
	"calm":      0.25,
	"medium":    0.5,
	"moderate":  0.5,
	"mid":       0.5,
	"high":      0.8,
	"very high": 0.95,
	"intense":   0.9,
}

// ParseEnergy converts a model-provided energy level into the 0..1 scale.
// Accepts words ("low", "high", ...), fractions ("0.7") and 1-10 scores ("8").
func ParseEnergy(level string) (float64, bool) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return 0, false
	}
	if v, ok := energyWords[level]; ok {
		return v, true
	}

	f, err := strconv.ParseFloat(level, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	switch {
	case f <= 1:
		return f, true
	case f <= 10:
		return f / 10, true
	case f <= 100:
		return f / 100, true
	}
	return 0, false
}

var valenceWords = []struct {
	word    string
	valence float64
}{
	{"melanchol", 0.2},
	{"sad", 0.2},
	{"depress", 0.15},
	{"angry", 0.3},
	{"dark", 0.3},
	{"lonely", 0.25},
	{"nostalg", 0.4},
	{"calm", 0.55},
	{"chill", 0.6},
	{"romantic", 0.65},
	{"happy", 0.85},
	{"joy", 0.9},
	{"upbeat", 0.8},
	{"energetic", 0.75},
	{"excited", 0.8},
}

// TargetsFor derives recommendation targets from a mood label and energy level.
func TargetsFor(mood, energyLevel string) Targets {
	var t Targets
	if e, ok := ParseEnergy(energyLevel); ok {
		t.Energy = &e
	}

	m := strings.ToLower(mood)
	for _, vw := range valenceWords {
		if strings.Contains(m, vw.word) {
			v := vw.valence
			t.Valence = &v
			break
		}
	}
	return t
}
