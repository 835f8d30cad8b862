package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/game"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/storage"
)

// runQuery prints basic info of the target server. It returns the process exit code.
func runQuery(cfg *config.Config, w io.Writer) int {
	target := cfg.QueryCmd.Target

	q, err := game.NewQuerier(cfg.Query)
	if err != nil {
		log.Error().Err(err).Msg("Invalid query options")
		return 1
	}

	info := q.GetServerInfo(target.IP, target.Port)
	if info == nil {
		_, _ = fmt.Fprintln(w, "server unreachable")
		return 1
	}

	printServerInfo(w, info)
	return 0
}

// runConnect attempts a login handshake with the target server and disconnects.
func runConnect(cfg *config.Config, w io.Writer) int {
	target := cfg.Connect.Target

	session := game.NewSession(target.IP, target.Port, cfg.Handshake)
	session.Progress = func(o models.ConnectionOutcome) {
		log.Info().
			Str("ip", target.IP).
			Int("port", target.Port).
			Str("state", o.String()).
			Msg("Handshake progress")
	}
	defer session.Disconnect()

	switch o := session.Connect(cfg.Connect.Username, cfg.Connect.Password).(type) {
	case models.Success:
		_, _ = fmt.Fprintln(w, "connected")
		return 0
	case models.Failed:
		_, _ = fmt.Fprintln(w, o.Reason)
	default:
		_, _ = fmt.Fprintln(w, o.String())
	}

	return 1
}

// runList prints every server stored in the database.
func runList(cfg *config.Config, w io.Writer) int {
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return 1
	}
	defer func() { _ = store.Close() }()

	servers, err := store.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		return 1
	}

	printServers(w, servers)
	return 0
}

// printServerInfo renders a single query result as a two-column table.
func printServerInfo(w io.Writer, info *models.ServerInfo) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Field", "Value"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	tw.AppendBulk([][]string{
		{"Address", info.AddressString()},
		{"Hostname", info.Hostname},
		{"Game Mode", info.GameMode},
		{"Language", info.Language},
		{"Players", info.PlayerCountString()},
		{"Password", yesNo(info.IsPassworded)},
	})

	tw.Render()
}

// printServers renders stored servers, most recently seen first.
func printServers(w io.Writer, servers []models.ServerRecord) {
	if len(servers) == 0 {
		_, _ = fmt.Fprintln(w, "no servers stored")
		return
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Address", "Hostname", "Mode", "Players", "Country", "Queries", "Last Seen"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, s := range servers {
		info := s.Info()
		tw.Append([]string{
			info.AddressString(),
			s.Hostname,
			s.GameMode,
			info.PlayerCountString(),
			s.CountryCode,
			strconv.FormatInt(s.Count, 10),
			s.LastSeen.Format("2006-01-02 15:04:05"),
		})
	}

	tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
