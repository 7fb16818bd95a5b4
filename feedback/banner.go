package feedback

import "time"

// Banner is the visibility state of the correctness feedback banner
type Banner struct {
	Visible bool   `json:"visible"`
	Correct bool   `json:"correct"`
	Text    string `json:"text"`
	// ShownAt is when the banner content was last updated
	ShownAt time.Time `json:"shownAt"`
	// FadeInAt is when the banner became visible after being hidden.  It is
	// not changed when visible content is replaced.
	FadeInAt time.Time `json:"fadeInAt"`
	// HiddenAt is when the banner was last hidden
	HiddenAt time.Time `json:"hiddenAt"`
}

// Opacity returns the banner opacity at the given time, fading in from
// FadeInAt and out from HiddenAt over the fade duration
func (b Banner) Opacity(now time.Time, fade time.Duration) float64 {

	if b.Visible {
		return progress(now, b.FadeInAt, fade)
	}

	if b.HiddenAt.IsZero() {
		return 0
	}

	return 1 - progress(now, b.HiddenAt, fade)
}

// progress returns how far through the fade starting at from now is, in the
// range [0,1]
func progress(now, from time.Time, fade time.Duration) float64 {

	if fade <= 0 || from.IsZero() {
		return 1
	}

	p := float64(now.Sub(from)) / float64(fade)

	if p < 0 {
		return 0
	}

	if p > 1 {
		return 1
	}

	return p
}
