package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdmitUnderCeiling(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	for i := 0; i < 3; i++ {
		d := l.Admit("u1", 3, false, now)
		assert.True(t, d.Admitted)
	}
}

func TestAdmitRejectsAtCeiling(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	for i := 0; i < 3; i++ {
		l.Admit("u1", 3, false, now)
	}
	d := l.Admit("u1", 3, false, now)
	assert.False(t, d.Admitted)
	assert.Equal(t, now.Add(time.Hour), d.Reset)
}

func TestAdmitPrunesOldTimestamps(t *testing.T) {
	l := New(time.Hour)
	start := time.Now()
	l.Admit("u1", 1, false, start)
	d := l.Admit("u1", 1, false, start.Add(2*time.Hour))
	assert.True(t, d.Admitted)
}

func TestAdmitUnlimitedBypassesCeiling(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	for i := 0; i < 100; i++ {
		d := l.Admit("u1", 0, true, now)
		assert.True(t, d.Admitted)
	}
}

func TestAdmitSeparateUsersIndependent(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	l.Admit("u1", 1, false, now)
	d := l.Admit("u2", 1, false, now)
	assert.True(t, d.Admitted)
}
