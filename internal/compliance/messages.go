package compliance

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Finding texts. The English text is the catalog key.
const (
	msgDailyViolation      = "This entry records %d minutes of work and exceeds the daily maximum of %d minutes."
	msgDailyWarning        = "This entry records %d minutes of work, more than the regular %d minutes per day."
	msgDailyTotalViolation = "Work on this day totals %d minutes and exceeds the daily maximum of %d minutes."
	msgDailyTotalWarning   = "Work on this day totals %d minutes, more than the regular %d minutes per day."
	msgWeeklyViolation     = "Work in this week totals %d minutes and exceeds the weekly maximum of %d minutes."
	msgWeeklyWarning       = "Work in this week totals %d minutes, more than the regular %d minutes per week."
	msgBreakRule           = "%s: %d minutes worked require a break of %d minutes, %d recorded."
)

var catalogs = map[language.Tag]map[string]string{
	language.German: {
		msgDailyViolation:      "Dieser Eintrag erfasst %d Minuten Arbeit und überschreitet das Tagesmaximum von %d Minuten.",
		msgDailyWarning:        "Dieser Eintrag erfasst %d Minuten Arbeit, mehr als die regulären %d Minuten pro Tag.",
		msgDailyTotalViolation: "Die Arbeit an diesem Tag beträgt insgesamt %d Minuten und überschreitet das Tagesmaximum von %d Minuten.",
		msgDailyTotalWarning:   "Die Arbeit an diesem Tag beträgt insgesamt %d Minuten, mehr als die regulären %d Minuten pro Tag.",
		msgWeeklyViolation:     "Die Arbeit in dieser Woche beträgt insgesamt %d Minuten und überschreitet das Wochenmaximum von %d Minuten.",
		msgWeeklyWarning:       "Die Arbeit in dieser Woche beträgt insgesamt %d Minuten, mehr als die regulären %d Minuten pro Woche.",
		msgBreakRule:           "%s: %d gearbeitete Minuten erfordern eine Pause von %d Minuten, erfasst sind %d.",
	},
}

// supportedTags lists the rendered languages. English needs no catalog.
var (
	supportedTags = []language.Tag{language.English, language.German}
	supported     = language.NewMatcher(supportedTags)
)

func init() {
	for tag, entries := range catalogs {
		for key, text := range entries {
			if err := message.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
}

// Messages renders human readable finding texts for one language.
type Messages struct {
	printer *message.Printer
}

// NewMessages builds a message renderer for the BCP 47 tag lang. Tags
// without a catalog, invalid tags and the empty tag render English.
func NewMessages(lang string) *Messages {
	tag := language.English
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			_, index, confidence := supported.Match(parsed)
			if confidence != language.No {
				tag = supportedTags[index]
			}
		}
	}
	return &Messages{printer: message.NewPrinter(tag)}
}

func (m *Messages) p() *message.Printer {
	if m == nil || m.printer == nil {
		return message.NewPrinter(language.English)
	}
	return m.printer
}

func (m *Messages) dailyViolation(net int) string {
	return m.p().Sprintf(msgDailyViolation, net, DailyViolationMinutes)
}

func (m *Messages) dailyWarning(net int) string {
	return m.p().Sprintf(msgDailyWarning, net, DailyWarningMinutes)
}

func (m *Messages) dailyTotalViolation(total int) string {
	return m.p().Sprintf(msgDailyTotalViolation, total, DailyViolationMinutes)
}

func (m *Messages) dailyTotalWarning(total int) string {
	return m.p().Sprintf(msgDailyTotalWarning, total, DailyWarningMinutes)
}

func (m *Messages) weeklyViolation(total int) string {
	return m.p().Sprintf(msgWeeklyViolation, total, WeeklyViolationMinutes)
}

func (m *Messages) weeklyWarning(total int) string {
	return m.p().Sprintf(msgWeeklyWarning, total, WeeklyWarningMinutes)
}

func (m *Messages) breakRule(rule BreakRule, gross, breakMinutes int) string {
	if rule.WarningText != "" {
		return rule.WarningText
	}
	return m.p().Sprintf(msgBreakRule, rule.Name, gross, rule.MinBreakMinutes, breakMinutes)
}
