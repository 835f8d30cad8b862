// Package models defines the data structures shared by the protocol clients,
// the API layer and database persistence.
package models

import (
	"net"
	"strconv"
	"time"
)

// ServerInfo describes a queried server. It is built once per successful
// info query and never modified afterwards.
type ServerInfo struct {
	Hostname      string `json:"hostname"`
	IP            string `json:"ip"`
	GameMode      string `json:"game_mode"`
	Language      string `json:"language"`
	Port          int    `json:"port"`
	PlayersOnline int    `json:"players_online"`
	MaxPlayers    int    `json:"max_players"`
	Ping          int    `json:"ping"`
	IsPassworded  bool   `json:"is_passworded"`
}

// PlayerCountString returns the player count formatted as "online/max".
func (s ServerInfo) PlayerCountString() string {
	return strconv.Itoa(s.PlayersOnline) + "/" + strconv.Itoa(s.MaxPlayers)
}

// AddressString returns the queried endpoint as "ip:port".
func (s ServerInfo) AddressString() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// ConnectRequest is the payload accepted by the handshake probe endpoint.
type ConnectRequest struct {
	IP       string `json:"ip"`
	Username string `json:"username"`
	Password string `json:"password"`
	Port     int    `json:"port"`
}

// ConnectResponse reports a handshake outcome to API clients.
type ConnectResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ServerRecord represents a queried server stored in the database.
type ServerRecord struct {
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	IP            string    `json:"ip"`
	Hostname      string    `json:"hostname"`
	GameMode      string    `json:"game_mode"`
	Language      string    `json:"language"`
	CountryCode   string    `json:"country_code"`
	Port          int       `json:"port"`
	PlayersOnline int       `json:"players_online"`
	MaxPlayers    int       `json:"max_players"`
	Count         int64     `json:"count"`
	IsPassworded  bool      `json:"is_passworded"`
}

// NewServerRecord builds a record from a fresh query result seen at the given time.
func NewServerRecord(info ServerInfo, country string, seen time.Time) ServerRecord {
	return ServerRecord{
		IP:            info.IP,
		Port:          info.Port,
		Hostname:      info.Hostname,
		GameMode:      info.GameMode,
		Language:      info.Language,
		PlayersOnline: info.PlayersOnline,
		MaxPlayers:    info.MaxPlayers,
		IsPassworded:  info.IsPassworded,
		CountryCode:   country,
		FirstSeen:     seen,
		LastSeen:      seen,
	}
}

// Info converts a stored record back into the ServerInfo last seen for it.
func (r ServerRecord) Info() ServerInfo {
	return ServerInfo{
		Hostname:      r.Hostname,
		IP:            r.IP,
		Port:          r.Port,
		GameMode:      r.GameMode,
		Language:      r.Language,
		PlayersOnline: r.PlayersOnline,
		MaxPlayers:    r.MaxPlayers,
		IsPassworded:  r.IsPassworded,
	}
}
