package epoch

import "fmt"

// Soundscape describes how an epoch should sound once filtered through its
// temporal depth. Presence and Clarity fall with depth and never drop below 0.1.
type Soundscape struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Period    string   `json:"period,omitempty"`
	Elements  []string `json:"elements,omitempty"`
	Presence  float64  `json:"presence"`
	Clarity   float64  `json:"clarity"`
	ReverbPct int      `json:"reverb_pct"`
	LowpassHz int      `json:"lowpass_hz"`
	Prompt    string   `json:"prompt,omitempty"`
}

// ReverbPct is the wet reverb percentage for a depth, capped at 80.
func ReverbPct(depth int) int {
	return min(depth*15, 80)
}

// LowpassHz is the low-pass cutoff for a depth, floored at 2 kHz.
func LowpassHz(depth int) int {
	return max(20000-depth*3000, 2000)
}

// SoundscapeFor derives the soundscape description for e.
func SoundscapeFor(e Epoch) Soundscape {
	d := e.Depth()
	s := Soundscape{
		Key:       e.Key,
		Label:     e.Label,
		Period:    e.Period,
		Elements:  append([]string(nil), e.Soundscape...),
		Presence:  max(0.1, 1-float64(d)*0.12),
		Clarity:   max(0.1, 1-float64(d)*0.15),
		ReverbPct: ReverbPct(d),
		LowpassHz: LowpassHz(d),
	}
	if e.AudioPrompt != "" {
		s.Prompt = fmt.Sprintf(
			"%s. Audio quality: %s. Processing: reverb %d%%, low-pass filter at %dHz, slight tape hiss and analog warmth.",
			e.AudioPrompt, qualityFor(d), s.ReverbPct, s.LowpassHz,
		)
	}
	return s
}

func qualityFor(depth int) string {
	switch {
	case depth == 0:
		return "crystal clear, high fidelity, present-day"
	case depth <= 2:
		return "slightly muffled, warm analog quality, nostalgic"
	case depth <= 4:
		return "distant, echoing, as if through old walls, ghostly"
	default:
		return "barely audible whispers, dreamlike, fragmentary, ancient"
	}
}
