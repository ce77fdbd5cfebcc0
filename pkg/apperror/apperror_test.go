package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFound("film", "f1"), http.StatusNotFound},
		{"invalid input", NewInvalidInput("bad", nil), http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("bad token", nil), http.StatusUnauthorized},
		{"access denied", NewAccessDenied("f1"), http.StatusForbidden},
		{"film not published", NewFilmNotPublished("f1"), http.StatusForbidden},
		{"conflict", NewConflict("user", "email", "a@b.c"), http.StatusConflict},
		{"payment declined", NewPaymentDeclined("card_declined", nil), http.StatusPaymentRequired},
		{"upstream", NewUpstreamUnavailable("content store", errors.New("dial")), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", NewNotFound("purchase", "p1")), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToHTTPStatus(tc.err))
		})
	}
}

func TestAppError_ToJSONIncludesCode(t *testing.T) {
	body := NewPaymentDeclined("insufficient_funds", nil).ToJSON()
	assert.Equal(t, CodePaymentDeclined, body["code"])
	assert.Equal(t, "Payment declined", body["message"])

	plain := NewInternal("x", nil).ToJSON()
	_, hasCode := plain["code"]
	assert.False(t, hasCode)
}
