package service

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	lrnPattern      = regexp.MustCompile(`^\d{12}$`)
	phMobilePattern = regexp.MustCompile(`^09\d{9}$`)
)

const (
	minGWA = 75.0
	maxGWA = 100.0
)

// registerStudentValidations installs the registrar field rules on v.
func registerStudentValidations(v *validator.Validate, now func() time.Time) {
	v.RegisterValidation("lrn", func(fl validator.FieldLevel) bool {
		return lrnPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("ph_mobile", func(fl validator.FieldLevel) bool {
		return phMobilePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("gwa", func(fl validator.FieldLevel) bool {
		value := fl.Field().Float()
		return value >= minGWA && value <= maxGWA
	})
	v.RegisterValidation("min_age", func(fl validator.FieldLevel) bool {
		birth, ok := fl.Field().Interface().(time.Time)
		if !ok || birth.IsZero() {
			return false
		}
		years, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return ageOn(birth, now()) >= years
	})
}

// ageOn returns the completed years between birth and at.
func ageOn(birth, at time.Time) int {
	age := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		age--
	}
	return age
}
