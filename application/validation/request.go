package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "shader_stage", func(fl validator.FieldLevel) bool {
		return entities.ShaderStage(fl.Field().Int()).Valid()
	})
	mustRegister(v, "shading_language", func(fl validator.FieldLevel) bool {
		return entities.ShadingLanguage(fl.Field().Int()).Valid()
	})
	mustRegister(v, "binary_language", func(fl validator.FieldLevel) bool {
		return entities.ShadingLanguage(fl.Field().Int()).IsBinary()
	})
	mustRegister(v, "stage_name", func(fl validator.FieldLevel) bool {
		_, err := entities.ParseShaderStage(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "language_name", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}
		_, err := entities.ParseShadingLanguage(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidateCompile checks a compile request before it reaches the compiler.
func ValidateCompile(source entities.SourceDesc, target entities.TargetDesc) error {
	if err := Struct(source); err != nil {
		return err
	}
	return Struct(target)
}

// ValidateDisassemble checks a disassemble request.
func ValidateDisassemble(source entities.DisassembleDesc) error {
	return Struct(source)
}

// Struct validates any tagged struct and converts the first failure into a
// ValidationError naming the offending field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domainerrors.ValidationError{
			Field: fe.Namespace(),
			Err:   errors.New(describe(fe)),
		}
	}
	return &domainerrors.ValidationError{Err: err}
}

// describe renders a field error in plain words.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "shader_stage", "stage_name":
		return fmt.Sprintf("unknown shader stage %v", fe.Value())
	case "shading_language", "language_name":
		return fmt.Sprintf("unknown shading language %v", fe.Value())
	case "binary_language":
		return fmt.Sprintf("%v is not a binary shading language", fe.Value())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
