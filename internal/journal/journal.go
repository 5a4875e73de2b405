// Package journal parses and renders the deal calculations journal.
//
// The calculations field of a deal is free text organised as a list of
// timestamped entries, optionally followed by an archived section. The
// matching engine only looks at the active section when it searches
// deal calculations for a policy number; the append/archive operations
// serve the surrounding application.
package journal

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ArchiveMarker separates the active entries from the archived ones.
const ArchiveMarker = "\n\n===ARCHIVE===\n\n"

const archiveSeparator = "\n\n--- Архив ---\n\n"

var (
	entryStartRe = regexp.MustCompile(`(?m)^\[\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}]`)
	entryHeadRe  = regexp.MustCompile(`^\[\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}]`)
)

// Entry is a single journal record. ID is a stable digest of the raw
// text, used to address entries when archiving.
type Entry struct {
	ID     string
	Raw    string
	Header string
	Body   string
}

// Parse splits journal text into active and archived entries. Empty
// text yields two empty slices.
func Parse(text string) (active, archived []Entry) {
	if text == "" {
		return nil, nil
	}

	activeText, archivedText := splitSections(text)
	return parseSection(activeText), parseSection(archivedText)
}

// Dump renders entries back into journal text. The archive marker is
// emitted only when archived entries exist.
func Dump(active, archived []Entry) string {
	var activeRaw, archivedRaw strings.Builder
	for _, entry := range active {
		activeRaw.WriteString(entry.Raw)
	}
	for _, entry := range archived {
		archivedRaw.WriteString(entry.Raw)
	}
	if len(archived) > 0 {
		return activeRaw.String() + ArchiveMarker + archivedRaw.String()
	}
	return activeRaw.String()
}

// Append prepends a new entry to the active section and returns the
// updated journal text. A body without a timestamp header gets one
// stamped with now.
func Append(text, body string, now time.Time) (string, Entry, error) {
	if body == "" {
		return "", Entry{}, fmt.Errorf("journal entry body cannot be empty")
	}

	entryText := strings.Trim(body, "\n")
	if !entryHeadRe.MatchString(entryText) {
		lines := strings.Split(entryText, "\n")
		header := lines[0]
		remainder := strings.Join(lines[1:], "\n")
		entryText = strings.TrimRight(fmt.Sprintf("[%s]: %s", now.Format("02.01.2006 15:04"), header), " ")
		if remainder != "" {
			entryText = entryText + "\n" + remainder
		}
	}
	if !strings.HasSuffix(entryText, "\n") {
		entryText += "\n"
	}

	active, archived := Parse(text)
	entry := entryFromRaw(entryText)
	active = append([]Entry{entry}, active...)
	return Dump(active, archived), entry, nil
}

// Archive moves the active entry with the given id into the archived
// section and returns the updated text. The second return value is
// false when no active entry has that id.
func Archive(text, entryID string) (string, bool) {
	active, archived := Parse(text)
	for i, entry := range active {
		if entry.ID == entryID {
			active = append(active[:i:i], active[i+1:]...)
			archived = append([]Entry{entry}, archived...)
			return Dump(active, archived), true
		}
	}
	return text, false
}

// FormatForDisplay renders the journal for presentation. With
// activeOnly set, archived entries are omitted entirely; otherwise they
// follow the active ones under a separator line.
func FormatForDisplay(text string, activeOnly bool) string {
	active, archived := Parse(text)

	var rendered strings.Builder
	for _, entry := range active {
		rendered.WriteString(entry.Raw)
	}
	if !activeOnly {
		if len(active) > 0 && len(archived) > 0 {
			rendered.WriteString(archiveSeparator)
		}
		for _, entry := range archived {
			rendered.WriteString(entry.Raw)
		}
	}
	return strings.TrimSpace(rendered.String())
}

func splitSections(text string) (string, string) {
	if idx := strings.Index(text, ArchiveMarker); idx >= 0 {
		return text[:idx], text[idx+len(ArchiveMarker):]
	}
	return text, ""
}

func parseSection(section string) []Entry {
	if section == "" {
		return nil
	}

	starts := entryStartRe.FindAllStringIndex(section, -1)
	if len(starts) == 0 {
		return []Entry{entryFromRaw(section)}
	}

	var entries []Entry
	prefix := section[:starts[0][0]]
	for i, match := range starts {
		start := match[0]
		end := len(section)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		raw := section[start:end]
		if i == 0 && prefix != "" {
			raw = prefix + raw
		}
		entries = append(entries, entryFromRaw(raw))
	}
	return entries
}

func entryFromRaw(raw string) Entry {
	sum := sha1.Sum([]byte(raw))
	stripped := strings.TrimRight(raw, "\n")
	lines := strings.Split(stripped, "\n")
	header := lines[0]
	body := ""
	if len(lines) > 1 {
		body = strings.Join(lines[1:], "\n")
	}
	return Entry{
		ID:     hex.EncodeToString(sum[:])[:8],
		Raw:    raw,
		Header: header,
		Body:   body,
	}
}
