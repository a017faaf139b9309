// Package chat is the thin boundary between the bot and the Discord API.
package chat

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Client is the subset of the chat platform the bot depends on.
type Client interface {
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	Edit(msg *discordgo.MessageEdit) (*discordgo.Message, error)
	Delete(channelID, messageID string) error
	React(channelID, messageID, emoji string) error
	Message(channelID, messageID string) (*discordgo.Message, error)
	// History returns up to limit messages older than beforeID (newest
	// first); an empty beforeID starts from the latest message.
	History(channelID, beforeID string, limit int) ([]*discordgo.Message, error)
	Channel(channelID string) (*discordgo.Channel, error)
}

type ChannelNotFoundError struct {
	ChannelID string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel %s not found", e.ChannelID)
}

// Session adapts a discordgo session to Client.
type Session struct {
	s *discordgo.Session
}

func NewSession(s *discordgo.Session) *Session {
	return &Session{s: s}
}

func (c *Session) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := c.s.ChannelMessageSendComplex(channelID, msg)
	return m, channelErr(channelID, err)
}

func (c *Session) Edit(msg *discordgo.MessageEdit) (*discordgo.Message, error) {
	m, err := c.s.ChannelMessageEditComplex(msg)
	return m, channelErr(msg.Channel, err)
}

func (c *Session) Delete(channelID, messageID string) error {
	return channelErr(channelID, c.s.ChannelMessageDelete(channelID, messageID))
}

func (c *Session) React(channelID, messageID, emoji string) error {
	return channelErr(channelID, c.s.MessageReactionAdd(channelID, messageID, emoji))
}

func (c *Session) Message(channelID, messageID string) (*discordgo.Message, error) {
	m, err := c.s.ChannelMessage(channelID, messageID)
	return m, channelErr(channelID, err)
}

func (c *Session) History(channelID, beforeID string, limit int) ([]*discordgo.Message, error) {
	msgs, err := c.s.ChannelMessages(channelID, limit, beforeID, "", "")
	return msgs, channelErr(channelID, err)
}

func (c *Session) Channel(channelID string) (*discordgo.Channel, error) {
	ch, err := c.s.Channel(channelID)
	return ch, channelErr(channelID, err)
}

func channelErr(channelID string, err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
		return &ChannelNotFoundError{ChannelID: channelID}
	}
	return err
}

// IsUnknownMessage reports whether err means the message no longer exists.
func IsUnknownMessage(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage
}

// Reply builds a message replying to m without pinging its author.
func Reply(m *discordgo.Message, content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         content,
		Reference:       m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
	}
}

func UserMention(id string) string {
	return (&discordgo.User{ID: id}).Mention()
}

func ChannelMention(id string) string {
	return (&discordgo.Channel{ID: id}).Mention()
}
