package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/barberbook/internal/constants"
)

// DayNames holds three-letter weekday names indexed Monday=0..Sunday=6.
type DayNames [7]string

var (
	EnglishNames = DayNames{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	ItalianNames = DayNames{"Lun", "Mar", "Mer", "Gio", "Ven", "Sab", "Dom"}
)

// NamesFor returns the name table for a language code. Unknown codes fall
// back to English.
func NamesFor(lang string) DayNames {
	switch strings.ToLower(lang) {
	case "it", "ita", "italian":
		return ItalianNames
	default:
		return EnglishNames
	}
}

// FormatDayLabel renders "<weekday> DD/MM/YYYY" with English names.
func FormatDayLabel(date time.Time) string {
	return FormatDayLabelWith(date, EnglishNames)
}

// FormatDayLabelWith renders a day label using names.
func FormatDayLabelWith(date time.Time, names DayNames) string {
	return fmt.Sprintf("%s %s", names[WeekdayOf(date)], date.Format(constants.DisplayDateFormat))
}
