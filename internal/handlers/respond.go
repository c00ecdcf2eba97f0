package handlers

import (
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord expects a first response within three seconds.
const deferAfter = 1500 * time.Millisecond

type responder interface {
	reply(r Reply)
	deferReply()
	editReply(r Reply)
}

// answer replies directly when dispatch finishes within wait, so the reply
// keeps its ephemeral flag. Slower commands are deferred and edited once done.
func answer(rs responder, wait time.Duration, dispatch func() Reply) {
	done := make(chan Reply, 1)
	go func() { done <- dispatch() }()

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case r := <-done:
		rs.reply(r)
		return
	case <-t.C:
	}
	rs.deferReply()
	rs.editReply(<-done)
}

type interactionResponder struct {
	s *discordgo.Session
	i *discordgo.InteractionCreate
}

func (ir *interactionResponder) reply(r Reply) {
	data := &discordgo.InteractionResponseData{Content: r.Content}
	if r.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{r.Embed}
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := ir.s.InteractionRespond(ir.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		slog.Warn("reply failed", "guildID", ir.i.GuildID, "userID", userIDOf(ir.i), "err", err)
	}
}

func (ir *interactionResponder) deferReply() {
	if err := ir.s.InteractionRespond(ir.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Warn("defer reply failed", "guildID", ir.i.GuildID, "userID", userIDOf(ir.i), "err", err)
	}
}

// editReply fills in the deferred response. A deferred response cannot turn
// ephemeral, so ephemeral replies replace it with an ephemeral followup.
func (ir *interactionResponder) editReply(r Reply) {
	if r.Ephemeral {
		if err := ir.s.InteractionResponseDelete(ir.i.Interaction); err != nil {
			slog.Debug("delete deferred reply failed", "guildID", ir.i.GuildID, "err", err)
		}
		params := &discordgo.WebhookParams{Content: r.Content, Flags: discordgo.MessageFlagsEphemeral}
		if r.Embed != nil {
			params.Embeds = []*discordgo.MessageEmbed{r.Embed}
		}
		if _, err := ir.s.FollowupMessageCreate(ir.i.Interaction, true, params); err != nil {
			slog.Warn("followup failed", "guildID", ir.i.GuildID, "userID", userIDOf(ir.i), "err", err)
		}
		return
	}

	edit := &discordgo.WebhookEdit{Content: &r.Content}
	if r.Embed != nil {
		edit.Embeds = &[]*discordgo.MessageEmbed{r.Embed}
	}
	if _, err := ir.s.InteractionResponseEdit(ir.i.Interaction, edit); err != nil {
		slog.Warn("edit reply failed", "guildID", ir.i.GuildID, "userID", userIDOf(ir.i), "err", err)
	}
}
