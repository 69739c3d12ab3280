package books

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time zone, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func dateFromNull(nt sql.NullTime) *Date {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	d := NewDate(t.Year(), t.Month(), t.Day())
	return &d
}

func dateArg(d *Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

// Book is an owned record. OwnerID is set on creation and never changes.
type Book struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	ReadingStartDate *Date     `json:"reading_start_date"`
	ReadingEndDate   *Date     `json:"reading_end_date"`
	OwnerID          int64     `json:"owner_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Input holds the client-mutable fields of a book. It has no owner field,
// so a payload cannot name one.
type Input struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	ReadingStartDate *Date  `json:"reading_start_date"`
	ReadingEndDate   *Date  `json:"reading_end_date"`
}

// UnmarshalJSON also accepts readingStartDate and readingEndDate. The
// snake_case key wins when a payload carries both.
func (in *Input) UnmarshalJSON(b []byte) error {
	type fields Input
	var v struct {
		fields
		StartDate *Date `json:"readingStartDate"`
		EndDate   *Date `json:"readingEndDate"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*in = Input(v.fields)
	if in.ReadingStartDate == nil {
		in.ReadingStartDate = v.StartDate
	}
	if in.ReadingEndDate == nil {
		in.ReadingEndDate = v.EndDate
	}
	return nil
}

type Status string

const (
	StatusNotRead Status = "not-read"
	StatusRead    Status = "read"
)

func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StatusNotRead):
		return StatusNotRead, true
	case string(StatusRead):
		return StatusRead, true
	}
	return "", false
}

type SortField string

const (
	SortByStartDate SortField = "reading_start_date"
	SortByEndDate   SortField = "reading_end_date"
)

// Query narrows a listing of one owner's books. Zero values mean no filter
// and id order.
type Query struct {
	Status        Status
	EndDate       *Date
	TitleContains string
	SortBy        SortField
	Desc          bool
}
