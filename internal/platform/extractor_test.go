// internal/platform/extractor_test.go
package platform

import (
	"regexp"
	"testing"
)

// Flattened page text snapshots in the shape the renderer produces: labels
// and values, one per line, markup already stripped.
const sportsTimingPage = `Shriram Properties Bengaluru Marathon
Name: Anita Rao
Category: F 30-39
Bib No: 4521
Net Time: 01:52:07
Overall Rank: 231
Category Rank: 12
Pace: 5:19 /km`

const timingTechPage = `Results for Mumbai Half Marathon 2026
Runner: Rahul Mehta
Division: M 40-44
Chip Time: 01:58:43
Bib No: 1203
Overall Pos: 540
Cat. Pos: 33
Pace (min/km): 5:37`

const raceResultPage = `Event
2026 Berlin Spring Run
Name: Lukas Meier
Contest: 10K Men
Finish Time: 00:47:12
Bib No: 887
Place 23 of 412
Rank AG: 5
Avg Pace: 4:43 min/km`

func mustProfile(t *testing.T, name string) *Profile {
	t.Helper()
	p, ok := DefaultRegistry().Lookup(name)
	if !ok {
		t.Fatalf("profile %q not registered", name)
	}
	return p
}

func wantString(t *testing.T, field string, got *string, want string) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: got null, want %q", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s: got %q, want %q", field, *got, want)
	}
}

func wantInt(t *testing.T, field string, got *int, want int) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: got null, want %d", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s: got %d, want %d", field, *got, want)
	}
}

func TestExtract_SportsTiming(t *testing.T) {
	result := Extract(sportsTimingPage, mustProfile(t, "sportstiming"))

	wantString(t, "platform", result.Platform, "sportstiming")
	wantString(t, "race_name", result.RaceName, "Shriram Properties Bengaluru Marathon")
	wantString(t, "participant_name", result.ParticipantName, "Anita Rao")
	wantString(t, "category", result.Category, "F 30-39")
	wantString(t, "finish_time", result.FinishTime, "01:52:07")
	wantString(t, "bib_number", result.BibNumber, "4521")
	wantInt(t, "overall_rank", result.OverallRank, 231)
	wantInt(t, "category_rank", result.CategoryRank, 12)
	wantString(t, "pace", result.Pace, "5:19 /km")
}

func TestExtract_TimingTech(t *testing.T) {
	result := Extract(timingTechPage, mustProfile(t, "timingtech"))

	wantString(t, "race_name", result.RaceName, "Mumbai Half Marathon 2026")
	wantString(t, "participant_name", result.ParticipantName, "Rahul Mehta")
	wantString(t, "category", result.Category, "M 40-44")
	wantString(t, "finish_time", result.FinishTime, "01:58:43")
	wantString(t, "bib_number", result.BibNumber, "1203")
	wantInt(t, "overall_rank", result.OverallRank, 540)
	wantInt(t, "category_rank", result.CategoryRank, 33)
	wantString(t, "pace", result.Pace, "5:37")
}

func TestExtract_RaceResult(t *testing.T) {
	result := Extract(raceResultPage, mustProfile(t, "raceresult"))

	wantString(t, "race_name", result.RaceName, "2026 Berlin Spring Run")
	wantString(t, "participant_name", result.ParticipantName, "Lukas Meier")
	wantString(t, "category", result.Category, "10K Men")
	wantString(t, "finish_time", result.FinishTime, "00:47:12")
	wantString(t, "bib_number", result.BibNumber, "887")
	wantInt(t, "overall_rank", result.OverallRank, 23)
	wantInt(t, "category_rank", result.CategoryRank, 5)
	wantString(t, "pace", result.Pace, "4:43 min/km")
}

// Earlier patterns in a chain win even when a later fallback would also
// match; the fallback is never consulted.
func TestExtract_PatternPrecedence(t *testing.T) {
	page := `Net Time: 01:00:00
Finish Time: 02:00:00`

	result := Extract(page, mustProfile(t, "sportstiming"))
	wantString(t, "finish_time", result.FinishTime, "01:00:00")
}

// A page matching none of a field's patterns yields null for that field
// while the other fields still extract normally.
func TestExtract_GracefulDegradation(t *testing.T) {
	page := `Name: Priya Sharma
Bib No: 99`

	result := Extract(page, mustProfile(t, "sportstiming"))

	wantString(t, "participant_name", result.ParticipantName, "Priya Sharma")
	wantString(t, "bib_number", result.BibNumber, "99")
	if result.FinishTime != nil {
		t.Errorf("finish_time should be null, got %q", *result.FinishTime)
	}
	if result.OverallRank != nil {
		t.Errorf("overall_rank should be null, got %d", *result.OverallRank)
	}
	if result.Pace != nil {
		t.Errorf("pace should be null, got %q", *result.Pace)
	}
}

func TestExtract_EmptyTextYieldsOnlyPlatform(t *testing.T) {
	result := Extract("", mustProfile(t, "sportstiming"))

	wantString(t, "platform", result.Platform, "sportstiming")
	if result.ParticipantName != nil || result.FinishTime != nil || result.OverallRank != nil {
		t.Error("empty text should extract nothing")
	}
}

// A rank capture that is not an integer coerces to null instead of
// propagating a parse failure.
func TestExtract_NonNumericRankIsNull(t *testing.T) {
	profile := &Profile{
		Name:       "custom",
		URLPattern: regexp.MustCompile(`^https://custom\.example/`),
		Chains: map[Field]Chain{
			FieldOverallRank:     {pat(`Rank:\s*(\S+)`)},
			FieldParticipantName: {pat(`Name:\s*([A-Za-z ]+)`)},
		},
	}

	result := Extract("Name: Test Runner\nRank: DNF", profile)

	if result.OverallRank != nil {
		t.Errorf("non-numeric rank should be null, got %d", *result.OverallRank)
	}
	wantString(t, "participant_name", result.ParticipantName, "Test Runner")
}

func TestExtract_ExplicitCaptureGroup(t *testing.T) {
	profile := &Profile{
		Name:       "grouped",
		URLPattern: regexp.MustCompile(`^https://grouped\.example/`),
		Chains: map[Field]Chain{
			FieldCategoryRank: {patGroup(`(Gender|Category)\s*(\d+)\s*/\s*\d+`, 2)},
		},
	}

	result := Extract("Category 12 / 345", profile)
	wantInt(t, "category_rank", result.CategoryRank, 12)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Anita   Rao \n", "Anita Rao"},
		{"José Núñez", "Jose Nunez"},
		{"5:19\t/km", "5:19 /km"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CleanText(tt.input); got != tt.expected {
			t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
