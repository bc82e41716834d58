package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/user-service/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	english := en.New()
	trans, _ = ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}

	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.IsValidRole(fl.Field().String())
	})
	roles := strings.Join(domain.RoleNames(domain.AllRoles), ", ")
	_ = validate.RegisterTranslation("role", trans,
		func(u ut.Translator) error {
			return u.Add("role", "{0} must be one of "+roles, true)
		},
		func(u ut.Translator, fe validator.FieldError) string {
			msg, _ := u.T("role", fe.Field())
			return msg
		},
	)
}

// Validate runs the struct's `validate` tags and reports every failing field
// as a single validation_failed error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ErrInvalidJSON(err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fe.Translate(trans)
		}
	}
	return domain.ErrValidationFailed(fields)
}
