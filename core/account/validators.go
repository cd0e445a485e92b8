package account

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
)

var (
	designationTag  = "designation"
	designationText = "invalid designation"

	termTag   = "term"
	termText  = "term must look like year-term, e.g. 2-1"
	termRegex = regexp.MustCompile(`^[1-4]-[12]$`)

	pwdStrengthTag  = "pwdstrength"
	pwdStrengthText = "password must be between 6 and 100 characters long"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to name or email"
)

// RegisterValidators adds the account-specific validation tags to an
// initialized validator (see core.InitValidators).
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(designationTag, designationValidation)
	core.RegisterCustomTranslation(validate, translator, designationTag, designationText)

	_ = validate.RegisterValidation(termTag, termValidation)
	core.RegisterCustomTranslation(validate, translator, termTag, termText)

	validate.RegisterStructValidation(newTeacherStructValidation, NewTeacher{})
	core.RegisterCustomTranslation(validate, translator, pwdStrengthTag, pwdStrengthText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// designationValidation checks that the value is a known Designation.
func designationValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, d := range Designations {
		if val == d {
			return true
		}
	}
	return false
}

// termValidation checks the year-term encoding, e.g. "2-1".
func termValidation(fl validator.FieldLevel) bool {
	return termRegex.MatchString(fl.Field().String())
}

// newTeacherStructValidation guards admin-supplied passwords: generated
// ones bypass this (they are policy-compliant by construction).
func newTeacherStructValidation(sl validator.StructLevel) {
	nt, ok := sl.Current().Interface().(NewTeacher)
	if !ok || nt.Password == "" {
		return
	}

	if res := credential.ValidateStrength(nt.Password); !res.Valid {
		sl.ReportError(nt.Password, "password", "Password", pwdStrengthTag, "")
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	if getRatio(nt.Password, nt.FullName) >= pwdMaxSim || getRatio(nt.Password, nt.Email) >= pwdMaxSim {
		sl.ReportError(nt.Password, "password", "Password", pwdAttrSimTag, "")
	}
}
