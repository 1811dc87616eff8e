package sshd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/pkg/models"
)

func TestParseExtractsFields(t *testing.T) {
	p := NewParser(Options{Year: 2025})

	cases := []struct {
		name   string
		line   string
		ts     time.Time
		status models.Status
		user   string
		ip     string
		port   int
		pid    int
	}{
		{
			name:   "space padded day",
			line:   "Jan  1 10:23:45 server sshd[1234]: Failed password for admin from 45.142.212.61 port 54321 ssh2",
			ts:     time.Date(2025, 1, 1, 10, 23, 45, 0, time.UTC),
			status: models.StatusFailed,
			user:   "admin",
			ip:     "45.142.212.61",
			port:   54321,
			pid:    1234,
		},
		{
			name:   "dotted username",
			line:   "Jan 14 10:23:45 server sshd[1235]: Accepted password for john.doe from 192.168.1.10 port 54322 ssh2",
			ts:     time.Date(2025, 1, 14, 10, 23, 45, 0, time.UTC),
			status: models.StatusAccepted,
			user:   "john.doe",
			ip:     "192.168.1.10",
			port:   54322,
			pid:    1235,
		},
		{
			name:   "underscore and dash",
			line:   "Mar 15 23:59:59 bastion-01 sshd[9]: Failed password for test_user-2 from 172.20.0.5 port 22 ssh2\n",
			ts:     time.Date(2025, 3, 15, 23, 59, 59, 0, time.UTC),
			status: models.StatusFailed,
			user:   "test_user-2",
			ip:     "172.20.0.5",
			port:   22,
			pid:    9,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := p.Parse(tc.line)
			require.NoError(t, err)
			assert.True(t, tc.ts.Equal(ev.Timestamp), "timestamp %v", ev.Timestamp)
			assert.Equal(t, tc.status, ev.Status)
			assert.Equal(t, tc.user, ev.Username)
			assert.Equal(t, tc.ip, ev.SourceIP)
			assert.Equal(t, tc.port, ev.Port)
			assert.Equal(t, tc.pid, ev.PID)
		})
	}
}

func TestParseDerivedFields(t *testing.T) {
	p := NewParser(Options{Year: 2026})
	ev, err := p.Parse("Jan 14 10:23:45 server sshd[1235]: Failed password for root from 172.16.0.100 port 40000 ssh2")
	require.NoError(t, err)

	assert.True(t, ev.IsFailedLogin)
	assert.True(t, ev.IsInternalIP)
	assert.Equal(t, 10, ev.Hour)
	assert.Equal(t, time.Wednesday, ev.Weekday)
	assert.Equal(t, "Wednesday", ev.WeekdayName())
	assert.Equal(t, "2026-01-14", ev.Date)
}

func TestParseRejects(t *testing.T) {
	p := NewParser(Options{Year: 2025})

	cases := []struct {
		name string
		line string
		want error
	}{
		{"malformed", "MALFORMED LOG ENTRY", ErrNoMatch},
		{"empty", "", ErrNoMatch},
		{"publickey", "Jan 14 10:23:45 server sshd[1]: Accepted publickey for bob from 10.0.0.5 port 22 ssh2", ErrNoMatch},
		{"invalid user", "Jan 14 10:23:45 server sshd[1]: Failed password for invalid user bob from 10.0.0.5 port 22 ssh2", ErrNoMatch},
		{"feb 30", "Feb 30 10:23:45 server sshd[1]: Failed password for bob from 10.0.0.5 port 22 ssh2", ErrInvalidTimestamp},
		{"feb 29 non leap", "Feb 29 10:23:45 server sshd[1]: Failed password for bob from 10.0.0.5 port 22 ssh2", ErrInvalidTimestamp},
		{"bad month", "Foo 12 10:23:45 server sshd[1]: Failed password for bob from 10.0.0.5 port 22 ssh2", ErrInvalidTimestamp},
		{"bad hour", "Jan 12 25:23:45 server sshd[1]: Failed password for bob from 10.0.0.5 port 22 ssh2", ErrInvalidTimestamp},
		{"huge port", "Jan 12 10:23:45 server sshd[1]: Failed password for bob from 10.0.0.5 port 99999999999999999999999 ssh2", ErrInvalidNumber},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse(tc.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.NotEmpty(t, perr.Reason)
		})
	}
}

func TestParseLeapDayWithLeapYear(t *testing.T) {
	p := NewParser(Options{Year: 2024})
	ev, err := p.Parse("Feb 29 00:00:01 server sshd[1]: Accepted password for bob from 10.0.0.5 port 22 ssh2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", ev.Date)
}

func TestParserDefaultsToCurrentYear(t *testing.T) {
	p := NewParser(Options{})
	assert.Equal(t, time.Now().Year(), p.Year())
}

func TestNormalizeDerivesFields(t *testing.T) {
	ts := time.Date(2026, 1, 14, 23, 5, 0, 0, time.UTC)

	ev := Normalize(Record{Timestamp: ts, Status: models.StatusFailed, Username: "root", SourceIP: "172.20.1.4", Port: 22, PID: 4242})
	assert.True(t, ev.IsFailedLogin)
	assert.True(t, ev.IsInternalIP)
	assert.Equal(t, 23, ev.Hour)
	assert.Equal(t, time.Wednesday, ev.Weekday)
	assert.Equal(t, "2026-01-14", ev.Date)
	assert.Equal(t, 4242, ev.PID)

	ev = Normalize(Record{Timestamp: ts, Status: models.StatusAccepted, SourceIP: "172.32.0.1"})
	assert.False(t, ev.IsFailedLogin)
	assert.False(t, ev.IsInternalIP)
}
