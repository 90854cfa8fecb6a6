// internal/platform/profiles.go
//
// Built-in vendor profiles. The regular expressions here are configuration
// data tuned against recorded result pages; when a vendor ships a new event
// template, append a fallback pattern to the affected chain instead of
// editing the existing entries.
package platform

import (
	"regexp"
)

func builtinProfiles() []*Profile {
	return []*Profile{
		sportsTimingProfile(),
		timingTechProfile(),
		raceResultProfile(),
	}
}

// sportsTimingProfile covers sportstimingsolutions.in result pages. Newer
// event templates label values inline ("Finish Time: 01:23:45"); older ones
// put the label on its own line above the value, hence the second pattern in
// most chains.
func sportsTimingProfile() *Profile {
	return &Profile{
		Name:       "sportstiming",
		URLPattern: regexp.MustCompile(`(?i)^https?://([a-z0-9-]+\.)*sportstimingsolutions\.in/`),
		Chains: map[Field]Chain{
			FieldRaceName: {
				pat(`(?i)Event\s*[:\-]\s*(.{3,80}?)\s*(?:\n|$)`),
				pat(`(?m)^\s*([A-Z][^\n]{5,80}(?:Marathon|Run|Race|Ultra|Duathlon|Triathlon)[^\n]{0,30})\s*$`),
			},
			FieldParticipantName: {
				pat(`(?i)Name\s*[:\-]\s*([A-Za-z][A-Za-z .'\-]{1,60})`),
				pat(`(?i)Participant\s*\n\s*([A-Za-z][A-Za-z .'\-]{1,60})`),
			},
			FieldCategory: {
				pat(`(?i)Category\s*[:\-]\s*([A-Za-z0-9 \-+/]{2,40})`),
				pat(`(?i)Age\s*Group\s*[:\-]?\s*([A-Za-z0-9 \-+/]{2,40})`),
			},
			FieldFinishTime: {
				pat(`(?i)(?:Net|Chip)\s*Time\s*[:\-]?\s*(\d{1,2}:\d{2}:\d{2})`),
				pat(`(?i)Finish\s*Time\s*[:\-]?\s*(\d{1,2}:\d{2}:\d{2})`),
				pat(`(?i)Time\s*\n\s*(\d{1,2}:\d{2}:\d{2})`),
			},
			FieldBibNumber: {
				pat(`(?i)Bib(?:\s*(?:No|Number|#))?\s*[:\-]?\s*([A-Z]?\d{1,6})`),
				pat(`(?i)BIB\s*\n\s*([A-Z]?\d{1,6})`),
			},
			FieldOverallRank: {
				pat(`(?i)Overall\s*Rank\s*[:\-]?\s*(\d{1,6})`),
				pat(`(?i)Rank\s*\(Overall\)\s*[:\-]?\s*(\d{1,6})`),
			},
			FieldCategoryRank: {
				pat(`(?i)Category\s*Rank\s*[:\-]?\s*(\d{1,6})`),
				pat(`(?i)Rank\s*\(Category\)\s*[:\-]?\s*(\d{1,6})`),
				// Some templates render "Gender/Category 12 / 345"; the rank
				// is the first number.
				patGroup(`(?i)(Gender|Category)\s*(\d{1,6})\s*/\s*\d{1,6}`, 2),
			},
			FieldPace: {
				pat(`(?i)Pace\s*[:\-]?\s*(\d{1,2}:\d{2}(?:\s*/?\s*(?:km|mi))?)`),
				pat(`(?i)Avg\.?\s*Pace\s*\n\s*(\d{1,2}:\d{2})`),
			},
		},
	}
}

// timingTechProfile covers timingindia.com and mytiming.in, which share one
// results template with tabular label/value rows.
func timingTechProfile() *Profile {
	return &Profile{
		Name:       "timingtech",
		URLPattern: regexp.MustCompile(`(?i)^https?://([a-z0-9-]+\.)*(timingindia\.com|mytiming\.in)/`),
		Chains: map[Field]Chain{
			FieldRaceName: {
				pat(`(?i)Race\s*[:\-]\s*(.{3,80}?)\s*(?:\n|$)`),
				pat(`(?i)Results\s*for\s*(.{3,80}?)\s*(?:\n|$)`),
			},
			FieldParticipantName: {
				pat(`(?i)Runner\s*[:\-]\s*([A-Za-z][A-Za-z .'\-]{1,60})`),
				pat(`(?i)Name\s*\n\s*([A-Za-z][A-Za-z .'\-]{1,60})`),
			},
			FieldCategory: {
				pat(`(?i)Division\s*[:\-]?\s*([A-Za-z0-9 \-+/]{2,40})`),
				pat(`(?i)Category\s*\n\s*([A-Za-z0-9 \-+/]{2,40})`),
			},
			FieldFinishTime: {
				pat(`(?i)Chip\s*Time\s*[:\-]?\s*(\d{1,2}:\d{2}:\d{2})`),
				pat(`(?i)Gun\s*Time\s*[:\-]?\s*(\d{1,2}:\d{2}:\d{2})`),
				pat(`(?i)Finish\s*\n\s*(\d{1,2}:\d{2}:\d{2})`),
			},
			FieldBibNumber: {
				pat(`(?i)Bib\s*(?:No\.?)?\s*[:\-]?\s*([A-Z]?\d{1,6})`),
			},
			FieldOverallRank: {
				pat(`(?i)Overall\s*(?:Rank|Position|Pos\.?)\s*[:\-]?\s*(\d{1,6})`),
				pat(`(?i)Rank\s*\n\s*(\d{1,6})\s*/\s*\d{1,6}`),
			},
			FieldCategoryRank: {
				pat(`(?i)(?:Division|Category)\s*(?:Rank|Position|Pos\.?)\s*[:\-]?\s*(\d{1,6})`),
				pat(`(?i)Cat\.?\s*Pos\.?\s*[:\-]?\s*(\d{1,6})`),
			},
			FieldPace: {
				pat(`(?i)Pace\s*(?:\(min/km\))?\s*[:\-]?\s*(\d{1,2}:\d{2})`),
				pat(`(?i)Speed[^\n]*\n[^\n]*Pace\s*(\d{1,2}:\d{2})`),
			},
		},
	}
}

// raceResultProfile covers my.raceresult.com participant detail pages.
func raceResultProfile() *Profile {
	return &Profile{
		Name:       "raceresult",
		URLPattern: regexp.MustCompile(`(?i)^https?://([a-z0-9-]+\.)*raceresult\.com/`),
		Chains: map[Field]Chain{
			FieldRaceName: {
				pat(`(?i)Event\s*\n\s*(.{3,80}?)\s*\n`),
				pat(`(?m)^\s*(\d{4}\s+[^\n]{5,70})\s*$`),
			},
			FieldParticipantName: {
				pat(`(?i)Name\s*[:\-]?\s*([A-Za-z][A-Za-z .'\-]{1,60})`),
				pat(`(?i)Participant\s*Details\s*\n\s*([A-Za-z][A-Za-z .'\-]{1,60})`),
			},
			FieldCategory: {
				pat(`(?i)Contest\s*[:\-]?\s*([A-Za-z0-9 \-+/]{2,40})`),
				pat(`(?i)AG\s*[:\-]\s*([A-Za-z0-9 \-+/]{2,40})`),
			},
			FieldFinishTime: {
				pat(`(?i)Finish\s*Time\s*[:\-]?\s*(\d{1,2}:\d{2}:\d{2}(?:\.\d+)?)`),
				pat(`(?i)Time\s*[:\-]\s*(\d{1,2}:\d{2}:\d{2}(?:\.\d+)?)`),
			},
			FieldBibNumber: {
				pat(`(?i)(?:Bib|Start)\s*(?:No\.?|Number)?\s*[:\-]?\s*([A-Z]?\d{1,6})`),
			},
			FieldOverallRank: {
				pat(`(?i)Rank\s*(?:Overall|Total)\s*[:\-]?\s*(\d{1,6})`),
				pat(`(?i)Overall\s*[:\-]?\s*(\d{1,6})\s*\.`),
				patGroup(`(?i)Place\s*(\d{1,6})\s*(of|/)\s*\d{1,6}`, 1),
			},
			FieldCategoryRank: {
				pat(`(?i)Rank\s*(?:AG|Age\s*Group|Contest)\s*[:\-]?\s*(\d{1,6})`),
				pat(`(?i)AG\s*Place\s*[:\-]?\s*(\d{1,6})`),
			},
			FieldPace: {
				pat(`(?i)(?:Avg\.?\s*)?Pace\s*[:\-]?\s*(\d{1,2}:\d{2}\s*(?:min/km)?)`),
				pat(`(?i)km/h[^\n]*\n[^\n]*?(\d{1,2}:\d{2})\s*min/km`),
			},
		},
	}
}
