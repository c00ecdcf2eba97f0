package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/jukebox/internal/player"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
)

func trackLink(id string) string {
	return fmt.Sprintf("[%s](%s)", id, stream.WatchURL(id))
}

func BuildPlayingEmbed(st player.Status) *discordgo.MessageEmbed {
	if st.Current == "" {
		desc := "No track is playing right now."
		if st.State == player.StateDisconnected {
			desc = "Not connected to a voice channel."
		}
		return &discordgo.MessageEmbed{
			Title:       "Nothing Playing",
			Description: desc,
			Color:       0x992222,
		}
	}

	color := 0x006400
	title := "Now Playing"
	button := "⏹️"
	if st.State == player.StatePaused {
		color = 0x8B0000
		title = "Paused"
		button = "▶️"
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("%s **%s**", button, trackLink(st.Current)),
		Color:       color,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: "https://i.ytimg.com/vi/" + st.Current + "/hqdefault.jpg"},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Volume", Value: volumeStr(st.Volume), Inline: true},
			{Name: "In queue", Value: queueInfo(st.Queued), Inline: true},
		},
	}
	if len(st.Upcoming) > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Up next: " + st.Upcoming[0]}
	}
	return embed
}

func BuildQueueEmbed(st player.Status) *discordgo.MessageEmbed {
	var b strings.Builder
	if st.Current != "" {
		fmt.Fprintf(&b, "**%s**\n\n", trackLink(st.Current))
	}
	if len(st.Upcoming) == 0 {
		b.WriteString("The queue is empty.")
	} else {
		b.WriteString("**Up next:**\n")
		for i, id := range st.Upcoming {
			fmt.Fprintf(&b, "`%d.` %s\n", i+1, trackLink(id))
		}
		if more := st.Queued - len(st.Upcoming); more > 0 {
			fmt.Fprintf(&b, "…and %d more\n", more)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
		Color:       0x006400,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "In queue", Value: queueInfo(st.Queued), Inline: true},
			{Name: "Playlist", Value: queueInfo(st.Playlist), Inline: true},
			{Name: "State", Value: st.State.String(), Inline: true},
		},
	}
}

func queueInfo(n int) string {
	if n == 0 {
		return "-"
	}
	if n == 1 {
		return "1 track"
	}
	return fmt.Sprintf("%d tracks", n)
}

func volumeStr(v float64) string {
	return fmt.Sprintf("%d%%", int(v*100+0.5))
}
