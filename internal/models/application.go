package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Application mirrors the Field Record with the checks the form's required
// markers stand for. Presentation layers run it before submitting.
type Application struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Address         string `json:"address" validate:"required"`
	Landmark        string `json:"landmark" validate:"required"`
	ResidentType    string `json:"residentType" validate:"required,oneof=Renter Owner"`
	Email           string `json:"email" validate:"required,email"`
	Phone1          string `json:"phone1" validate:"required"`
	Phone2          string `json:"phone2"`
	Provider        string `json:"provider" validate:"required"`
	PlanDescription string `json:"planDescription" validate:"required"`
	Package         string `json:"package" validate:"required,oneof=300 500 800"`
	HowKnow         string `json:"howKnow" validate:"required"`
	SalesAgent      string `json:"salesAgent" validate:"required"`
	ContactPerson   string `json:"contactPerson" validate:"required"`
}

// ApplicationFromFields copies Field Record values into an Application.
func ApplicationFromFields(fields map[string]string) Application {
	return Application{
		Date:            fields[FieldDate],
		FirstName:       fields[FieldFirstName],
		LastName:        fields[FieldLastName],
		Address:         fields[FieldAddress],
		Landmark:        fields[FieldLandmark],
		ResidentType:    fields[FieldResidentType],
		Email:           fields[FieldEmail],
		Phone1:          fields[FieldPhone1],
		Phone2:          fields[FieldPhone2],
		Provider:        fields[FieldProvider],
		PlanDescription: fields[FieldPlanDescription],
		Package:         fields[FieldPackage],
		HowKnow:         fields[FieldHowKnow],
		SalesAgent:      fields[FieldSalesAgent],
		ContactPerson:   fields[FieldContactPerson],
	}
}

// ValidationError maps field names to human readable problems.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid application: " + strings.Join(parts, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func applicationValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks required markers and formats. It returns a
// *ValidationError listing every failing field.
func (a Application) Validate() error {
	err := applicationValidator().Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return fmt.Sprintf("must be a date formatted %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}
