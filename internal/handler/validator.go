package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// FormValidator adapts go-playground/validator to echo.Validator.  Field
// errors are keyed by the json tag so clients can map them onto inputs.
type FormValidator struct {
    v *validator.Validate
}

func NewFormValidator() *FormValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &FormValidator{v: v}
}

func (fv *FormValidator) Validate(i interface{}) error {
    return fv.v.Struct(i)
}

// fieldErrors turns a validation error into field -> message.  Errors that
// are not validation errors are reported under "_form".
func fieldErrors(err error) map[string]string {
    out := map[string]string{}
    var ves validator.ValidationErrors
    if !errors.As(err, &ves) {
        out["_form"] = err.Error()
        return out
    }
    for _, fe := range ves {
        if _, seen := out[fe.Field()]; seen {
            continue
        }
        out[fe.Field()] = messageFor(fe)
    }
    return out
}

func messageFor(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "This value should not be blank."
    case "max":
        return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
    case "min":
        return fmt.Sprintf("This value is too short. It should have %s characters or more.", fe.Param())
    case "url":
        return "This value is not a valid URL."
    case "email":
        return "This value is not a valid email address."
    default:
        return "This value is not valid."
    }
}
