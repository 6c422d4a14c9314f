package service

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type studentFields struct {
	LRN       string    `validate:"omitempty,lrn"`
	Contact   string    `validate:"omitempty,ph_mobile"`
	GWA       float64   `validate:"omitempty,gwa"`
	BirthDate time.Time `validate:"min_age=16"`
}

func TestStudentValidations(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	v := validator.New()
	registerStudentValidations(v, func() time.Time { return now })
	valid := studentFields{LRN: "123456789012", Contact: "09171234567", GWA: 90, BirthDate: now.AddDate(-16, 0, 0)}

	assert.NoError(t, v.Struct(valid))

	cases := map[string]func(s *studentFields){
		"lrn with letters":   func(s *studentFields) { s.LRN = "12345678901a" },
		"lrn too long":       func(s *studentFields) { s.LRN = "1234567890123" },
		"landline contact":   func(s *studentFields) { s.Contact = "0281234567" },
		"gwa below 75":       func(s *studentFields) { s.GWA = 74.5 },
		"gwa above 100":      func(s *studentFields) { s.GWA = 100.01 },
		"one day before 16":  func(s *studentFields) { s.BirthDate = now.AddDate(-16, 0, 1) },
		"missing birth date": func(s *studentFields) { s.BirthDate = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid
			mutate(&s)
			assert.Error(t, v.Struct(s))
		})
	}
}

func TestAgeOn(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 16, ageOn(time.Date(2010, 2, 28, 0, 0, 0, 0, time.UTC), at))
	assert.Equal(t, 15, ageOn(time.Date(2010, 3, 2, 0, 0, 0, 0, time.UTC), at))
	assert.Equal(t, 16, ageOn(time.Date(2010, 3, 1, 0, 0, 0, 0, time.UTC), at))
}
