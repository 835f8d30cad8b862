package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServerInfo_Strings(t *testing.T) {
	info := ServerInfo{IP: "127.0.0.1", Port: 7777, PlayersOnline: 5, MaxPlayers: 50}

	assert.Equal(t, "5/50", info.PlayerCountString())
	assert.Equal(t, "127.0.0.1:7777", info.AddressString())
}

func TestServerRecord_RoundTrip(t *testing.T) {
	info := ServerInfo{
		Hostname:      "Test Server",
		IP:            "10.0.0.1",
		Port:          7777,
		GameMode:      "DM",
		Language:      "EN",
		PlayersOnline: 5,
		MaxPlayers:    50,
		IsPassworded:  true,
	}
	seen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := NewServerRecord(info, "DE", seen)
	assert.Equal(t, "DE", rec.CountryCode)
	assert.Equal(t, seen, rec.FirstSeen)
	assert.Equal(t, seen, rec.LastSeen)
	assert.Equal(t, info, rec.Info())
}

func TestConnectionOutcome(t *testing.T) {
	outcomes := []ConnectionOutcome{Success{}, Failed{Reason: "server full"}, Connecting{}}
	labels := []string{"success", "failed: server full", "connecting"}

	for i, o := range outcomes {
		assert.Equal(t, labels[i], o.String())

		switch v := o.(type) {
		case Success:
			assert.True(t, IsSuccess(v))
		case Failed:
			assert.False(t, IsSuccess(v))
			assert.Equal(t, "server full", v.Reason)
		case Connecting:
			assert.False(t, IsSuccess(v))
		default:
			t.Fatalf("unexpected outcome %T", o)
		}
	}
}
