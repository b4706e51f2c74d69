package persona

import (
	"fmt"
	"strings"
)

// Describe renders a profile as a readable style card for status
// output. Axis order is canonical so the card is stable across calls.
func Describe(p *Profile) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n\n", p.Name)
	for _, axis := range Axes() {
		v := p.Get(axis)
		fmt.Fprintf(&sb, "%-13s %s %.2f (%s)\n", axis, bar(v), v, levelWord(v))
	}

	return sb.String()
}

// DescribeVoice converts the dominant axes into one-line style
// guidance, in the spirit of a system-prompt personality block.
func DescribeVoice(p *Profile) string {
	var lines []string

	switch {
	case p.Get(AxisFormality) >= 0.7:
		lines = append(lines, "Formal, professional register.")
	case p.Get(AxisFormality) >= 0.3:
		lines = append(lines, "Conversational but composed register.")
	default:
		lines = append(lines, "Casual, loose register.")
	}

	if p.Get(AxisHedging) >= 0.6 {
		lines = append(lines, "Qualifies claims frequently.")
	} else if p.Get(AxisHedging) < 0.2 {
		lines = append(lines, "States conclusions without hedging.")
	}

	switch {
	case p.Get(AxisVerbosity) >= 0.7:
		lines = append(lines, "Expansive, multi-part answers.")
	case p.Get(AxisVerbosity) < 0.3:
		lines = append(lines, "Minimal wording.")
	}

	if p.Get(AxisWarmth) >= 0.7 {
		lines = append(lines, "Warm and personable.")
	}
	if p.Get(AxisEnthusiasm) >= 0.7 {
		lines = append(lines, "High energy, exclamatory.")
	}
	if p.Get(AxisTechnicality) >= 0.7 {
		lines = append(lines, "Leans on code and structured detail.")
	}
	if p.Get(AxisHumor) >= 0.6 {
		lines = append(lines, "Jokes when the moment allows.")
	}

	return strings.Join(lines, " ")
}

func bar(v float64) string {
	const width = 10
	filled := int(v*width + 0.5)
	if filled > width {
		filled = width
	}
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

func levelWord(v float64) string {
	switch {
	case v >= 0.85:
		return "very high"
	case v >= 0.65:
		return "high"
	case v >= 0.35:
		return "moderate"
	case v >= 0.15:
		return "low"
	default:
		return "very low"
	}
}
