package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/inventario-garantias/internal/domain"
)

var validate = newValidator()

// Los campos se reportan con su nombre JSON.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate aplica los tags `validate` y devuelve *domain.ValidationError con todos los campos fallidos,
// en el orden en que aparecen en el struct.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	onlyRequired := true
	for _, fe := range verrs {
		fields = append(fields, fieldPath(fe))
		if fe.Tag() != "required" {
			onlyRequired = false
		}
	}
	reason := "campos inválidos"
	if onlyRequired {
		reason = "faltan campos requeridos"
	}
	return &domain.ValidationError{Fields: fields, Reason: reason}
}

// fieldPath quita el nombre del struct raíz: "CreateClaimRequest.loan.quantity" -> "loan.quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
