// Package report renders tempo results for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-tempo/tempo"
)

const (
	barWidth      = 20
	maxCandidates = 5
)

// Color palette
var (
	primaryColor = lipgloss.Color("#C89A3A")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#F0F0F0")
	emptyColor   = lipgloss.Color("#444444")
)

type styles struct {
	title  lipgloss.Style
	key    lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	filled lipgloss.Style
	empty  lipgloss.Style
}

func newStyles(styled bool) styles {
	if !styled {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}

	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		key:    lipgloss.NewStyle().Foreground(mutedColor),
		value:  lipgloss.NewStyle().Bold(true).Foreground(textColor),
		muted:  lipgloss.NewStyle().Foreground(mutedColor),
		filled: lipgloss.NewStyle().Foreground(primaryColor),
		empty:  lipgloss.NewStyle().Foreground(emptyColor),
	}
}

// Text writes a human readable summary of res. With styled false the output
// carries no ANSI escapes.
func Text(w io.Writer, res *tempo.Result, styled bool) error {
	if res == nil {
		return fmt.Errorf("nil result")
	}

	s := newStyles(styled)
	var b strings.Builder

	row := func(key, value string) {
		fmt.Fprintf(&b, "%s %s\n", s.key.Render(fmt.Sprintf("%-15s", key+":")), value)
	}

	b.WriteString(s.title.Render("Tempo analysis"))
	b.WriteString("\n\n")

	row("BPM", s.value.Render(fmt.Sprintf("%d", res.BPM))+" "+s.muted.Render(fmt.Sprintf("(%.2f raw, %s)", res.RawBPM, res.Category())))
	row("Confidence", confidenceBar(s, res.Confidence))

	alternative := s.muted.Render("none")
	if res.AlternativeBPM != nil {
		alternative = s.value.Render(fmt.Sprintf("%d", *res.AlternativeBPM))
	}
	row("Alternative", alternative)

	signature := s.value.Render(res.TimeSignature)
	if res.TimeSignatureAssumed {
		signature += " " + s.muted.Render("(assumed)")
	}
	row("Time signature", signature)

	row("Window", fmt.Sprintf("%.2fs - %.2fs", res.Start, res.Start+res.Duration))
	row("Level", fmt.Sprintf("%.1f dBFS", res.LevelDBFS))
	row("Onsets", fmt.Sprintf("%d", len(res.Onsets)))
	row("Beats", fmt.Sprintf("%d every %.3fs", len(res.BeatTimes), res.BeatPeriod()))

	if len(res.Candidates) > 0 {
		b.WriteString("\n")
		b.WriteString(s.key.Render(fmt.Sprintf("%-8s %-8s %s", "bucket", "bpm", "support")))
		b.WriteString("\n")
		for i, c := range res.Candidates {
			if i == maxCandidates {
				break
			}
			line := fmt.Sprintf("%-8d %-8.2f %d", c.Bucket, c.BPM, c.Support)
			if i == 0 {
				line = s.value.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes res as indented JSON
func JSON(w io.Writer, res *tempo.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(res)
}

func confidenceBar(s styles, confidence int) string {
	confidence = max(0, min(100, confidence))
	filled := confidence * barWidth / 100

	return s.filled.Render(strings.Repeat("━", filled)) +
		s.empty.Render(strings.Repeat("━", barWidth-filled)) +
		fmt.Sprintf(" %3d%%", confidence)
}
