package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(summary *Summary) string {
	var sb strings.Builder

	sb.WriteString("# Extraction Summary\n\n")
	sb.WriteString(fmt.Sprintf("Generated at %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	f.writeSettings(&sb, summary.Settings)
	f.writeSources(&sb, summary.Sources)
	f.writeFailures(&sb, summary.Sources)
	f.writeTotals(&sb, summary.Totals())

	return sb.String()
}

func (f *MarkdownFormatter) writeSettings(sb *strings.Builder, s Settings) {
	sb.WriteString("## Settings\n\n")
	sb.WriteString("| Setting | Value |\n")
	sb.WriteString("|---------|-------|\n")
	if s.Selection != "" {
		sb.WriteString(fmt.Sprintf("| Frames | `%s` |\n", s.Selection))
	}
	sb.WriteString(fmt.Sprintf("| Output Format | %s |\n", orDash(s.Format)))
	pix := s.PixelFormat
	if pix == "" {
		pix = "native"
	}
	sb.WriteString(fmt.Sprintf("| Decoder Pixel Format | %s |\n", pix))
	sb.WriteString(fmt.Sprintf("| Seek Threshold | %d frames |\n", s.SeekThreshold))
	if s.ScaleWidth > 0 {
		sb.WriteString(fmt.Sprintf("| Scale Width | %d px |\n", s.ScaleWidth))
	} else {
		sb.WriteString("| Scale Width | source |\n")
	}
	sb.WriteString(fmt.Sprintf("| Parallel Jobs | %d |\n", s.Jobs))
	sb.WriteString("\n")
}

func (f *MarkdownFormatter) writeSources(sb *strings.Builder, sources []SourceInfo) {
	sb.WriteString("## Sources\n\n")
	if len(sources) == 0 {
		sb.WriteString("No sources processed.\n\n")
		return
	}

	sb.WriteString("| Source | Status | Stream | Frames | Decoded | Seeks | Missing | Time | Output |\n")
	sb.WriteString("|--------|--------|--------|--------|---------|-------|---------|------|--------|\n")
	for _, src := range sources {
		if src.Status == StatusFailed {
			sb.WriteString(fmt.Sprintf("| %s | %s | - | - | - | - | - | - | - |\n",
				escape(src.Source), src.Status))
			continue
		}
		stream := fmt.Sprintf("%s %dx%d @ %s", orDash(src.Codec), src.Width, src.Height, orDash(src.FrameRate))
		frames := fmt.Sprintf("%d", src.Requested)
		if src.Distinct > 0 && src.Distinct != src.Requested {
			frames = fmt.Sprintf("%d (%d distinct)", src.Requested, src.Distinct)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %d | %s | %d ms | %d files, %s |\n",
			escape(src.Source),
			src.Status,
			stream,
			frames,
			src.FramesDecoded,
			src.Seeks,
			formatSlots(src.Missing),
			src.DurationMs,
			len(src.Files),
			formatBytes(src.Bytes),
		))
	}
	sb.WriteString("\n")
}

func (f *MarkdownFormatter) writeFailures(sb *strings.Builder, sources []SourceInfo) {
	var failed []SourceInfo
	for _, src := range sources {
		if src.Status == StatusFailed {
			failed = append(failed, src)
		}
	}
	if len(failed) == 0 {
		return
	}

	sb.WriteString("## Failures\n\n")
	for _, src := range failed {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", escape(src.Source), orDash(src.Error)))
	}
	sb.WriteString("\n")
}

func (f *MarkdownFormatter) writeTotals(sb *strings.Builder, t Totals) {
	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Sources | %d (%d partial, %d failed) |\n", t.Sources, t.Partial, t.Failed))
	sb.WriteString(fmt.Sprintf("| Frames Requested | %d |\n", t.Requested))
	sb.WriteString(fmt.Sprintf("| Frames Missing | %d |\n", t.Missing))
	sb.WriteString(fmt.Sprintf("| Frames Decoded | %d |\n", t.FramesDecoded))
	sb.WriteString(fmt.Sprintf("| Seeks | %d |\n", t.Seeks))
	sb.WriteString(fmt.Sprintf("| Files Written | %d (%s) |\n", t.Files, formatBytes(t.Bytes)))
	sb.WriteString(fmt.Sprintf("| Decode Time | %d ms |\n", t.DurationMs))
}

// formatSlots lists up to eight slot numbers.
func formatSlots(slots []int) string {
	if len(slots) == 0 {
		return "0"
	}
	const shown = 8
	parts := make([]string, 0, shown)
	for i, s := range slots {
		if i == shown {
			break
		}
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	list := strings.Join(parts, ", ")
	if len(slots) > shown {
		list += ", ..."
	}
	return fmt.Sprintf("%d (slots %s)", len(slots), list)
}

// formatBytes formats bytes into a human-readable string.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escape keeps pipes in file names from breaking table rows.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// Ensure MarkdownFormatter implements Formatter
var _ Formatter = (*MarkdownFormatter)(nil)
