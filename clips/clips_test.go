package clips

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 11, 12, 0, 0, 0, time.UTC)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier([]string{"medal.tv"}, []string{".mp4", "webm"})
	require.NoError(t, err)
	return c
}

func msg(id, content string, at time.Time, attachments ...string) *discordgo.Message {
	m := &discordgo.Message{
		ID:        id,
		Content:   content,
		Timestamp: at,
		Author:    &discordgo.User{ID: "u" + id, Username: "user" + id},
	}
	for _, a := range attachments {
		m.Attachments = append(m.Attachments, &discordgo.MessageAttachment{
			Filename: a,
			URL:      "https://cdn.example.com/" + a,
		})
	}
	return m
}

func TestClassify(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		name     string
		msg      *discordgo.Message
		ok       bool
		url      string
		kind     Kind
		filename string
	}{
		{
			name: "medal link",
			msg:  msg("1", "look at this https://medal.tv/games/valorant/clips/abc nice", t0),
			ok:   true, url: "https://medal.tv/games/valorant/clips/abc", kind: LinkClip,
		},
		{
			name: "first medal link wins",
			msg:  msg("1", "https://medal.tv/a https://medal.tv/b", t0),
			ok:   true, url: "https://medal.tv/a", kind: LinkClip,
		},
		{
			name: "trusted link preferred over earlier video link",
			msg:  msg("1", "https://x.com/v.mp4 and https://medal.tv/c", t0),
			ok:   true, url: "https://medal.tv/c", kind: LinkClip,
		},
		{
			name: "direct video link, case insensitive",
			msg:  msg("1", "http://example.com/Clip.MP4", t0),
			ok:   true, url: "http://example.com/Clip.MP4", kind: LinkClip,
		},
		{
			name: "bare domain mention is not a clip",
			msg:  msg("1", "I uploaded it to medal.tv yesterday", t0),
		},
		{
			name: "plain http medal link is not trusted",
			msg:  msg("1", "http://medal.tv/a", t0),
		},
		{
			name: "attachment",
			msg:  msg("1", "", t0, "notes.txt", "GAME.Mp4", "second.mp4"),
			ok:   true, url: "https://cdn.example.com/GAME.Mp4", kind: FileClip, filename: "GAME.Mp4",
		},
		{
			name: "extension configured without dot",
			msg:  msg("1", "", t0, "clip.webm"),
			ok:   true, url: "https://cdn.example.com/clip.webm", kind: FileClip, filename: "clip.webm",
		},
		{
			name: "link beats attachment",
			msg:  msg("1", "https://medal.tv/x", t0, "a.mp4"),
			ok:   true, url: "https://medal.tv/x", kind: LinkClip,
		},
		{
			name: "no clip",
			msg:  msg("1", "hello there", t0, "image.png"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip, ok := c.Classify(tt.msg)
			require.Equal(t, tt.ok, ok)
			if !ok {
				assert.Equal(t, Clip{}, clip)
				return
			}
			assert.Equal(t, tt.url, clip.URL)
			assert.Equal(t, tt.kind, clip.Kind)
			assert.Equal(t, tt.filename, clip.Filename)
			assert.Equal(t, tt.msg.ID, clip.ID)
			assert.Equal(t, tt.msg.Author.ID, clip.SubmitterID)
			assert.Equal(t, t0, clip.CreatedAt)

			again, _ := c.Classify(tt.msg)
			assert.Equal(t, clip, again)
		})
	}
}

func TestClassify_FileClipPlaceholderContent(t *testing.T) {
	clip, ok := newClassifier(t).Classify(msg("1", "", t0, "a.mp4"))
	require.True(t, ok)
	assert.Equal(t, "Video file", clip.Content)
}

func TestDisplayName(t *testing.T) {
	m := msg("1", "", t0)
	assert.Equal(t, "user1", DisplayName(m))

	m.Author.GlobalName = "Global"
	assert.Equal(t, "Global", DisplayName(m))

	m.Member = &discordgo.Member{Nick: "Nick"}
	assert.Equal(t, "Nick", DisplayName(m))
}

func TestCollect_NewestFirstStable(t *testing.T) {
	c := newClassifier(t)
	msgs := []*discordgo.Message{
		msg("1", "https://medal.tv/1", t0),
		msg("2", "no clip", t0.Add(time.Hour)),
		msg("3", "https://medal.tv/3", t0.Add(2*time.Hour)),
		msg("4", "https://medal.tv/4", t0),
		msg("5", "", t0.Add(time.Hour), "v.mp4"),
	}

	got := c.Collect(msgs)

	var ids []string
	for _, clip := range got {
		ids = append(ids, clip.ID)
	}
	assert.Equal(t, []string{"3", "5", "1", "4"}, ids)
}

func TestNewClassifier_RequiresPatterns(t *testing.T) {
	_, err := NewClassifier(nil, []string{".mp4"})
	assert.Error(t, err)
	_, err = NewClassifier([]string{"medal.tv"}, nil)
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "link", LinkClip.String())
	assert.Equal(t, "file", FileClip.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
