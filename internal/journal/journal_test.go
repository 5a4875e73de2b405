package journal

import (
	"strings"
	"testing"
	"time"
)

func TestParseEmptyText(t *testing.T) {
	active, archived := Parse("")
	if len(active) != 0 || len(archived) != 0 {
		t.Errorf("Parse(\"\") = %d active, %d archived, expected empty", len(active), len(archived))
	}
}

func TestParseSplitsActiveAndArchived(t *testing.T) {
	text := "[02.02.2024 10:00]: Свежая запись\n" +
		"[01.02.2024 09:00]: Вторая запись\n" +
		ArchiveMarker +
		"[01.01.2024 08:00]: Старая запись\n"

	active, archived := Parse(text)

	if len(active) != 2 {
		t.Fatalf("active = %d entries, expected 2", len(active))
	}
	if len(archived) != 1 {
		t.Fatalf("archived = %d entries, expected 1", len(archived))
	}
	if active[0].Header != "[02.02.2024 10:00]: Свежая запись" {
		t.Errorf("active[0].Header = %q", active[0].Header)
	}
	if archived[0].Header != "[01.01.2024 08:00]: Старая запись" {
		t.Errorf("archived[0].Header = %q", archived[0].Header)
	}
}

func TestParseTextWithoutHeaders(t *testing.T) {
	active, archived := Parse("просто свободный текст без заголовков")
	if len(active) != 1 || len(archived) != 0 {
		t.Fatalf("expected a single active entry, got %d/%d", len(active), len(archived))
	}
	if active[0].Raw != "просто свободный текст без заголовков" {
		t.Errorf("Raw = %q", active[0].Raw)
	}
}

func TestParseDumpRoundTrip(t *testing.T) {
	text := "[02.02.2024 10:00]: Запись с телом\nстрока тела\n" +
		ArchiveMarker +
		"[01.01.2024 08:00]: Архив\n"

	active, archived := Parse(text)
	if got := Dump(active, archived); got != text {
		t.Errorf("Dump(Parse(text)) = %q, expected original %q", got, text)
	}
}

func TestAppendPrependsTimestampedEntry(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	existing := "[01.02.2024 09:00]: Старая запись\n"

	updated, entry, err := Append(existing, "Новый расчёт\nподробности", now)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if !strings.HasPrefix(updated, "[05.03.2024 14:30]: Новый расчёт\nподробности\n") {
		t.Errorf("updated journal does not start with the new entry: %q", updated)
	}
	if !strings.Contains(updated, "[01.02.2024 09:00]: Старая запись") {
		t.Error("existing entry lost after append")
	}
	if entry.Header != "[05.03.2024 14:30]: Новый расчёт" {
		t.Errorf("entry.Header = %q", entry.Header)
	}
}

func TestAppendKeepsExistingHeader(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	body := "[01.03.2024 12:00] уже со штампом"

	updated, entry, err := Append("", body, now)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if entry.Header != "[01.03.2024 12:00] уже со штампом" {
		t.Errorf("entry.Header = %q, expected the provided header untouched", entry.Header)
	}
	if !strings.HasPrefix(updated, "[01.03.2024 12:00]") {
		t.Errorf("updated = %q", updated)
	}
}

func TestAppendRejectsEmptyBody(t *testing.T) {
	if _, _, err := Append("", "", time.Now()); err == nil {
		t.Error("expected an error for an empty body")
	}
}

func TestArchiveMovesEntry(t *testing.T) {
	text := "[02.02.2024 10:00]: Первая\n[01.02.2024 09:00]: Вторая\n"
	active, _ := Parse(text)

	updated, ok := Archive(text, active[1].ID)
	if !ok {
		t.Fatal("Archive reported the entry as missing")
	}

	newActive, newArchived := Parse(updated)
	if len(newActive) != 1 || newActive[0].Header != "[02.02.2024 10:00]: Первая" {
		t.Errorf("active after archive = %+v", newActive)
	}
	if len(newArchived) != 1 || newArchived[0].Header != "[01.02.2024 09:00]: Вторая" {
		t.Errorf("archived after archive = %+v", newArchived)
	}
}

func TestArchiveUnknownID(t *testing.T) {
	text := "[02.02.2024 10:00]: Первая\n"
	updated, ok := Archive(text, "ffffffff")
	if ok {
		t.Error("Archive must report false for an unknown id")
	}
	if updated != text {
		t.Errorf("text changed for an unknown id: %q", updated)
	}
}

func TestFormatForDisplayActiveOnly(t *testing.T) {
	text := "[02.02.2024 10:00]: Активная\n" +
		ArchiveMarker +
		"[01.01.2024 08:00]: Архивная\n"

	rendered := FormatForDisplay(text, true)
	if strings.Contains(rendered, "Архивная") {
		t.Errorf("activeOnly render leaked archived text: %q", rendered)
	}
	if !strings.Contains(rendered, "Активная") {
		t.Errorf("active entry missing: %q", rendered)
	}
}

func TestFormatForDisplayWithArchive(t *testing.T) {
	text := "[02.02.2024 10:00]: Активная\n" +
		ArchiveMarker +
		"[01.01.2024 08:00]: Архивная\n"

	rendered := FormatForDisplay(text, false)
	if !strings.Contains(rendered, "--- Архив ---") {
		t.Errorf("archive separator missing: %q", rendered)
	}
	if !strings.Contains(rendered, "Архивная") {
		t.Errorf("archived entry missing: %q", rendered)
	}
}

func TestEntryIDsAreStable(t *testing.T) {
	text := "[02.02.2024 10:00]: Запись\n"
	first, _ := Parse(text)
	second, _ := Parse(text)
	if first[0].ID != second[0].ID {
		t.Errorf("IDs differ across parses: %q vs %q", first[0].ID, second[0].ID)
	}
	if len(first[0].ID) != 8 {
		t.Errorf("ID length = %d, expected 8", len(first[0].ID))
	}
}
