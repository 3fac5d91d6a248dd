package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(ErrInvalidCaptcha))
	assert.False(t, IsTransient(ErrCancelled))
	assert.False(t, IsTransient(&SiteMessageError{Text: "نام وارد شده معتبر نیست"}))
	assert.False(t, IsTransient(fmt.Errorf("submit: %w", ErrInvalidCaptcha)))

	assert.True(t, IsTransient(fmt.Errorf("stale element")))
	assert.True(t, IsTransient(&FieldExtractionError{Field: "owner", Err: fmt.Errorf("missing")}))
}

func TestIsCaptchaAlert(t *testing.T) {
	assert.True(t, IsCaptchaAlert("کد امنیتی وارد شده اشتباه است"))
	assert.True(t, IsCaptchaAlert("مقدار اشتباه است"))
	assert.False(t, IsCaptchaAlert("نام کالا الزامی است"))
	assert.False(t, IsCaptchaAlert(""))
}

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromCode("INVALID_INPUT"))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromCode("NOT_FOUND"))
	assert.Equal(t, http.StatusMethodNotAllowed, HTTPStatusFromCode("METHOD_NOT_ALLOWED"))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromCode("CONFLICT"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("INTERNAL_ERROR"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
}

func TestFileReadErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := &FileReadError{Path: "names.txt", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "names.txt")
}
