package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/startupconnect/internal/model"
)

var validate = validator.New()

// RegisterInput は登録フォームの入力値。
type RegisterInput struct {
	Name            string `validate:"required,max=100"`
	Email           string `validate:"required,email,max=254"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"eqfield=Password"`
	Role            string `validate:"required,oneof=founder investor"`
	Company         string `validate:"max=200"`
	Description     string `validate:"max=2000"`
}

// validateRegister は登録フォームを検証し、画面に表示するエラーを返す。
// パスワード不一致はロール未選択より優先して報告する。
func validateRegister(in RegisterInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var (
		mismatch bool
		badRole  bool
		first    string
	)
	for _, fe := range verrs {
		switch fe.Field() {
		case "ConfirmPassword":
			mismatch = true
		case "Role":
			badRole = true
		default:
			if first == "" {
				first = fe.Field()
			}
		}
	}

	switch {
	case first != "":
		return model.NewInvalidInputError(strings.ToLower(first))
	case mismatch:
		return model.NewPasswordMismatchError()
	case badRole:
		return model.NewRoleRequiredError()
	default:
		return model.NewInvalidInputError("form")
	}
}

// normalizeEmail はメールアドレスを比較用に正規化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
