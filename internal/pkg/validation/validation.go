package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// UUID parses s, returning "Invalid UUID format for <field>" on failure.
func UUID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, errors.New("Invalid UUID format for " + field)
	}
	return id, nil
}

// OptionalUUID is UUID for query filters: empty means no filter.
func OptionalUUID(s, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := UUID(s, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// OptionalBool parses "true"/"false" query values; empty means no filter.
func OptionalBool(s, field string) (*bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.New("Invalid boolean for " + field)
	}
	return &b, nil
}
