package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type tokenParams struct {
	ID string `json:"id" validate:"required,uuid4"`
}

func TestValidateStructSuccess(t *testing.T) {
	if err := ValidateStruct(tokenParams{ID: uuid.NewString()}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(tokenParams{ID: "not-a-uuid"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(vErrs) != 1 {
		t.Fatalf("expected 1 validation error, got %d", len(vErrs))
	}
	if vErrs[0].Field != "id" || vErrs[0].Tag != "uuid4" {
		t.Fatalf("unexpected failure %+v", vErrs[0])
	}
}

func TestValidateVar(t *testing.T) {
	if err := ValidateVar("id", uuid.NewString(), "required,uuid4"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err := ValidateVar("id", "", "required,uuid4")
	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if vErrs[0].Field != "id" || vErrs[0].Tag != "required" {
		t.Fatalf("unexpected failure %+v", vErrs[0])
	}
	if vErrs.Error() != "id failed on required" {
		t.Fatalf("unexpected message %q", vErrs.Error())
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("classroom", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "classroom"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"classroom"`
	}

	if err := ValidateStruct(custom{Value: "classroom"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "other"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
