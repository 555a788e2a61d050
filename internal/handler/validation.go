package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"member-accounts/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate parses a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) *errors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}

	if err := validate.Struct(dst); err != nil {
		var details []string
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fieldMessage(fe)))
			}
		} else {
			details = append(details, err.Error())
		}
		return errors.NewAppError(errors.InvalidInput, "invalid request data").WithDetails(strings.Join(details, "; "))
	}

	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "value is too small or short, minimum " + fe.Param()
	case "max":
		return "value is too large or long, maximum " + fe.Param()
	default:
		return "invalid value"
	}
}
