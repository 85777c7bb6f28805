package infra

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// NewDiscordSession opens an authenticated Discord gateway session. Role
// reads and mutations go over REST, but the session must be open for the
// bot to appear in the guild and for member intents to be honored.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("open discord session: %w", err)
	}

	return session, nil
}
