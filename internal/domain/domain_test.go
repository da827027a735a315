package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"401", &UpstreamError{StatusCode: http.StatusUnauthorized}, KindUnauthorized},
		{"403 wrapped", fmt.Errorf("load: %w", &UpstreamError{StatusCode: http.StatusForbidden}), KindUnauthorized},
		{"408", &UpstreamError{StatusCode: http.StatusRequestTimeout}, KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"502", &UpstreamError{StatusCode: http.StatusBadGateway}, KindUpstream},
		{"404 upstream", &UpstreamError{StatusCode: http.StatusNotFound}, KindUpstream},
		{"validation", fmt.Errorf("%w: bad url", ErrValidation), KindValidation},
		{"dispute", &PaymentDisputeError{Reason: "already refunded"}, KindPaymentDispute},
		{"other", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestMesTime_AcceptsUpstreamFormats(t *testing.T) {
	var v struct {
		A MesTime `json:"a"`
		B MesTime `json:"b"`
		C MesTime `json:"c"`
		D MesTime `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"2025-03-11T10:00:00","b":"2025-03-11","c":"2025-03-11T07:00:00Z","d":null}`), &v)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-11 10:00", v.A.In(MesLocation).Format("2006-01-02 15:04"))
	assert.Equal(t, "2025-03-11", FormatDate(v.B.Time))
	assert.True(t, v.A.Equal(v.C.Time))
	assert.True(t, v.D.IsZero())
}

func TestCanonicalDate(t *testing.T) {
	local := time.Date(2025, 3, 11, 10, 0, 0, 999, MesLocation)
	got := CanonicalDate(local)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC), got)
}

func TestSubscript(t *testing.T) {
	assert.Equal(t, "₃", Subscript(3))
	assert.Equal(t, "₁₀", Subscript(10))
}
