package core

import (
	"errors"
	"strings"
	"time"
)

// MaxPhoneLen is the storage limit for the phone column.
const MaxPhoneLen = 15

type (
	// Date is a calendar date without a time component, normalized to UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Contribution is a single monetary transfer record. ID is zero until the
	// store assigns one on insert.
	Contribution struct {
		ID           int64
		Phone        string
		Amount       Money
		TransferDate Date
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid transfer date")
	ErrPhoneTooLong  = errors.New("phone number too long")
)

// dateLayouts are the input formats accepted for transfer dates, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a transfer date string. Any time-of-day component is
// truncated to midnight.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD, the canonical wire form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Contribution) Validate() error {
	if err := c.TransferDate.Validate(); err != nil {
		return err
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if len(c.Phone) > MaxPhoneLen {
		return ErrPhoneTooLong
	}
	return nil
}
