package books

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotFound = errors.New("book not found")
	// ErrForbidden means the book exists but belongs to someone else.
	ErrForbidden       = errors.New("book belongs to another account")
	ErrUnauthenticated = errors.New("no authenticated identity")
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

const maxTextLen = 30

func validateInput(in Input) error {
	for _, f := range []struct{ name, v string }{{"title", in.Title}, {"author", in.Author}} {
		if err := checkText(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

func checkText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: field, Msg: "must not be blank"}
	}
	if utf8.RuneCountInString(v) > maxTextLen {
		return &ValidationError{Field: field, Msg: fmt.Sprintf("must be at most %d characters", maxTextLen)}
	}
	return nil
}
