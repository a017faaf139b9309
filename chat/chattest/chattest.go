// Package chattest provides an in-memory chat.Client for tests.
package chattest

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
)

const BotID = "bot"

// Client stores messages per channel in posting order. Reactions added
// through React are attributed to the bot, AddVotes adds others.
type Client struct {
	mu       sync.Mutex
	nextID   int
	channels map[string][]*discordgo.Message
	known    map[string]bool

	// Deleted records every successful delete as "channel/message".
	Deleted []string
	// HistoryCalls records the beforeID of every History call.
	HistoryCalls []string

	// Fail, when set, is consulted before every operation; a non-nil
	// error is returned to the caller.
	Fail func(op, channelID, messageID string) error
}

func New(channels ...string) *Client {
	c := &Client{
		nextID:   1000,
		channels: make(map[string][]*discordgo.Message),
		known:    make(map[string]bool),
	}
	for _, ch := range channels {
		c.known[ch] = true
	}
	return c
}

var _ chat.Client = (*Client)(nil)

func (c *Client) fail(op, channelID, messageID string) error {
	if !c.known[channelID] {
		return &chat.ChannelNotFoundError{ChannelID: channelID}
	}
	if c.Fail != nil {
		return c.Fail(op, channelID, messageID)
	}
	return nil
}

func (c *Client) id() string {
	c.nextID++
	return strconv.Itoa(c.nextID)
}

// Seed appends an existing message to a channel, as if posted by someone
// else. An empty ID gets one assigned.
func (c *Client) Seed(channelID string, m *discordgo.Message) *discordgo.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[channelID] = true
	if m.ID == "" {
		m.ID = c.id()
	}
	m.ChannelID = channelID
	c.channels[channelID] = append(c.channels[channelID], m)
	return m
}

func (c *Client) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("send", channelID, ""); err != nil {
		return nil, err
	}
	m := &discordgo.Message{
		ID:        c.id(),
		ChannelID: channelID,
		Content:   msg.Content,
		Embeds:    msg.Embeds,
		Author:    &discordgo.User{ID: BotID, Bot: true},
		Timestamp: time.Now(),
	}
	c.channels[channelID] = append(c.channels[channelID], m)
	return m, nil
}

func (c *Client) Edit(msg *discordgo.MessageEdit) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("edit", msg.Channel, msg.ID); err != nil {
		return nil, err
	}
	m := c.find(msg.Channel, msg.ID)
	if m == nil {
		return nil, unknownMessage()
	}
	if msg.Content != nil {
		m.Content = *msg.Content
	}
	if msg.Embeds != nil {
		m.Embeds = *msg.Embeds
	}
	return m, nil
}

func (c *Client) Delete(channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("delete", channelID, messageID); err != nil {
		return err
	}
	msgs := c.channels[channelID]
	i := slices.IndexFunc(msgs, func(m *discordgo.Message) bool { return m.ID == messageID })
	if i < 0 {
		return unknownMessage()
	}
	c.channels[channelID] = slices.Delete(msgs, i, i+1)
	c.Deleted = append(c.Deleted, channelID+"/"+messageID)
	return nil
}

func (c *Client) React(channelID, messageID, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("react", channelID, messageID); err != nil {
		return err
	}
	m := c.find(channelID, messageID)
	if m == nil {
		return unknownMessage()
	}
	addReaction(m, emoji, 1, true)
	return nil
}

// AddVotes adds n reactions from other users.
func (c *Client) AddVotes(channelID, messageID, emoji string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := c.find(channelID, messageID); m != nil {
		addReaction(m, emoji, n, false)
	}
}

func (c *Client) Message(channelID, messageID string) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("message", channelID, messageID); err != nil {
		return nil, err
	}
	m := c.find(channelID, messageID)
	if m == nil {
		return nil, unknownMessage()
	}
	cp := *m
	cp.Reactions = slices.Clone(m.Reactions)
	return &cp, nil
}

// History mimics the API: newest first, strictly older than beforeID.
func (c *Client) History(channelID, beforeID string, limit int) ([]*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HistoryCalls = append(c.HistoryCalls, beforeID)
	if err := c.fail("history", channelID, ""); err != nil {
		return nil, err
	}
	msgs := c.channels[channelID]
	end := len(msgs)
	if beforeID != "" {
		end = slices.IndexFunc(msgs, func(m *discordgo.Message) bool { return m.ID == beforeID })
		if end < 0 {
			return nil, nil
		}
	}
	var page []*discordgo.Message
	for i := end - 1; i >= 0 && len(page) < limit; i-- {
		page = append(page, msgs[i])
	}
	return page, nil
}

func (c *Client) Channel(channelID string) (*discordgo.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("channel", channelID, ""); err != nil {
		return nil, err
	}
	return &discordgo.Channel{ID: channelID, Name: "channel-" + channelID}, nil
}

// Messages returns a snapshot of a channel's messages in posting order.
func (c *Client) Messages(channelID string) []*discordgo.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.channels[channelID])
}

func (c *Client) find(channelID, messageID string) *discordgo.Message {
	for _, m := range c.channels[channelID] {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}

func addReaction(m *discordgo.Message, emoji string, n int, me bool) {
	for _, r := range m.Reactions {
		if r.Emoji != nil && r.Emoji.Name == emoji {
			r.Count += n
			r.Me = r.Me || me
			return
		}
	}
	m.Reactions = append(m.Reactions, &discordgo.MessageReactions{
		Count: n,
		Me:    me,
		Emoji: &discordgo.Emoji{Name: emoji},
	})
}

func unknownMessage() error {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		ResponseBody: []byte(`{"message": "Unknown Message", "code": 10008}`),
		Message:      &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: "Unknown Message"},
	}
}

// ErrInjected is a convenience error for Fail hooks.
var ErrInjected = errors.New("injected failure")

// FailOn returns a Fail hook erroring for one operation on one channel.
func FailOn(op, channelID string) func(string, string, string) error {
	return func(o, ch, _ string) error {
		if o == op && ch == channelID {
			return fmt.Errorf("%s %s: %w", op, ch, ErrInjected)
		}
		return nil
	}
}
