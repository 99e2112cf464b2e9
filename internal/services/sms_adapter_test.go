package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "already international", raw: "+48123456789", want: "+48123456789"},
		{name: "bare nine digits gets polish prefix", raw: "123456789", want: "+48123456789"},
		{name: "country code without plus", raw: "48123456789", want: "+48123456789"},
		{name: "double zero prefix", raw: "0048123456789", want: "+48123456789"},
		{name: "spaces and dashes stripped", raw: "+48 123-456-789", want: "+48123456789"},
		{name: "parentheses stripped", raw: "(48) 123 456 789", want: "+48123456789"},
		{name: "us number untouched", raw: "+12025550123", want: "+12025550123"},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "too long", raw: "+1234567890123456", wantErr: true},
		{name: "letters only", raw: "not-a-phone", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "plus not leading is dropped", raw: "48+123456789", want: "+48123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPhoneNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSMSAdapter_DisabledSkips(t *testing.T) {
	adapter := NewSMSAdapter(SMSConfig{Enabled: false}, zap.NewNop())

	assert.Equal(t, StateDisabled, adapter.State())
	result := adapter.Send(context.Background(), "+48123456789", Message{Text: "hi"})
	assert.Equal(t, SendSkipped, result.Status)
	assert.NoError(t, result.Err)
}

func TestSMSAdapter_InvalidPhoneFails(t *testing.T) {
	adapter := NewSMSAdapter(SMSConfig{Enabled: true, Provider: "console"}, zap.NewNop())

	result := adapter.Send(context.Background(), "abc", Message{Text: "hi"})
	assert.Equal(t, SendFailed, result.Status)
	assert.ErrorIs(t, result.Err, ErrInvalidPhoneNumber)
}

func TestSMSAdapter_ConsoleProviderSends(t *testing.T) {
	adapter := NewSMSAdapter(SMSConfig{Enabled: true}, zap.NewNop())

	assert.Equal(t, StateReady, adapter.State())
	result := adapter.Send(context.Background(), "123 456 789", Message{Text: "shift tomorrow"})
	assert.Equal(t, SendSent, result.Status)
}

func TestSMSAdapter_UnknownProviderMisconfigured(t *testing.T) {
	adapter := NewSMSAdapter(SMSConfig{Enabled: true, Provider: "carrier-pigeon"}, zap.NewNop())

	assert.Equal(t, StateMisconfigured, adapter.State())
}

func TestSMSAdapter_EmptyTargetSkips(t *testing.T) {
	adapter := NewSMSAdapter(SMSConfig{Enabled: true}, zap.NewNop())

	result := adapter.Send(context.Background(), "", Message{Text: "hi"})
	assert.Equal(t, SendSkipped, result.Status)
}
