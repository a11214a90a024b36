package utils

import (
	"errors"
	"strings"
	"time"
)

type DateFormat string

const (
	FormatISO8601Date DateFormat = "2006-01-02"
	FormatSlashDate   DateFormat = "2006/01/02"
	FormatRFC3339     DateFormat = "2006-01-02T15:04:05Z07:00"
)

var birthdateFormats = []DateFormat{
	FormatISO8601Date,
	FormatSlashDate,
	FormatRFC3339,
}

var (
	ErrInvalidBirthdate = errors.New("birthdate is not a valid date")
	ErrFutureBirthdate  = errors.New("birthdate is in the future")
	ErrAncientBirthdate = errors.New("birthdate is before 1900-01-01")
)

var earliestBirthdate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseBirthdate accepts year-first layouts only; day/month order is never
// guessed. The result is a UTC date with no time component.
func ParseBirthdate(input string, today time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrInvalidBirthdate
	}

	for _, format := range birthdateFormats {
		parsed, err := time.Parse(string(format), input)
		if err != nil {
			continue
		}

		date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		if date.Before(earliestBirthdate) {
			return time.Time{}, ErrAncientBirthdate
		}
		todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		if date.After(todayDate) {
			return time.Time{}, ErrFutureBirthdate
		}
		return date, nil
	}

	return time.Time{}, ErrInvalidBirthdate
}

func FormatBirthdate(date time.Time) string {
	return date.Format(string(FormatISO8601Date))
}

// AgeOn returns completed years between birth and today, never negative.
func AgeOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
