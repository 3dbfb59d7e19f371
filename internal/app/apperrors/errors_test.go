package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinels_AreWrapFriendly(t *testing.T) {
	err := fmt.Errorf("verify webhook: %w", ErrInvalidSignature)
	require.True(t, errors.Is(err, ErrInvalidSignature))
	require.Equal(t, KindSignature, KindOf(err))
	require.Equal(t, "Invalid signature", MessageOf(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrMissingSignature, http.StatusUnauthorized},
		{ErrInvalidNotificationData, http.StatusBadRequest},
		{ErrUserNotFound, http.StatusNotFound},
		{ExternalService(errors.New("timeout")), http.StatusBadGateway},
		{Persistence(errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestPersistence_UnwrapsCause(t *testing.T) {
	cause := errors.New("conn refused")
	err := Persistence(cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, KindPersistence, KindOf(err))
	require.Contains(t, err.Error(), "conn refused")
}
