package validator

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// township - имя поддерживаемого посёлка
	_ = validate.RegisterValidation("township", func(fl validator.FieldLevel) bool {
		_, ok := domain.Townships[fl.Field().String()]
		return ok
	})
}

// Validate - валидация структуры. Ошибки полей возвращаются как
// ErrInvalidRequest с деталями поле -> правило.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}
	details := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Namespace()] = fe.Tag()
	}
	return errors.ErrInvalidRequest.WithDetails(details)
}

// GetValidator - получить валидатор для кастомной конфигурации
func GetValidator() *validator.Validate {
	return validate
}
