package cron

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"chefscan_backend/pkg/email"
)

func TestWarnExpiringSkippedWithoutMailer(t *testing.T) {
	// db is nil: if the mailer guard were bypassed the sweep would have
	// to query and would panic here.
	s := NewExpirySweeper(nil, zerolog.Nop())

	assert.Nil(t, s.mailer)
	assert.NotPanics(t, func() { s.warnExpiring() })
}

func TestUnconfiguredMailerIsNeverWrapped(t *testing.T) {
	// The wiring pattern for an optional email service: the option is
	// only appended when the concrete pointer is non-nil. Wrapping a nil
	// *email.Service directly would produce a non-nil Mailer interface
	// that panics on first use.
	var svc *email.Service

	opts := []Option{}
	if svc != nil {
		opts = append(opts, WithMailer(svc))
	}
	s := NewExpirySweeper(nil, zerolog.Nop(), opts...)

	assert.Nil(t, s.mailer)
	assert.NotPanics(t, func() { s.warnExpiring() })
}
