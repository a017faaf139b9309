package clips

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Kind int

const (
	LinkClip Kind = iota
	FileClip
)

func (k Kind) String() string {
	switch k {
	case LinkClip:
		return "link"
	case FileClip:
		return "file"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Clip is a video submission extracted from a chat message.
type Clip struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	SubmitterID   string    `json:"submitterId"`
	SubmitterName string    `json:"submitterName"`
	CreatedAt     time.Time `json:"createdAt"`
	Content       string    `json:"content"`
	Kind          Kind      `json:"kind"`
	Filename      string    `json:"filename,omitempty"`
}

const fileClipContent = "Video file"

// Classifier decides whether messages are clips. It holds no state besides
// its patterns, so it is safe for concurrent use.
type Classifier struct {
	trusted    *regexp.Regexp
	videoURL   *regexp.Regexp
	extensions []string
}

// NewClassifier builds a classifier accepting https links to any of the
// trusted domains, direct video links and video attachments with one of
// the given extensions.
func NewClassifier(domains, extensions []string) (*Classifier, error) {
	if len(domains) == 0 || len(extensions) == 0 {
		return nil, fmt.Errorf("need at least one domain and one extension")
	}

	quoted := make([]string, len(domains))
	for i, d := range domains {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(d))
	}
	trusted, err := regexp.Compile(`https://(?:` + strings.Join(quoted, "|") + `)/\S+`)
	if err != nil {
		return nil, err
	}

	exts := make([]string, len(extensions))
	quoted = make([]string, len(extensions))
	for i, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[i] = e
		quoted[i] = regexp.QuoteMeta(e)
	}
	videoURL, err := regexp.Compile(`(?i)https?://\S+(?:` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return nil, err
	}

	return &Classifier{trusted: trusted, videoURL: videoURL, extensions: exts}, nil
}

// ExtractURL returns the first trusted-domain link in content, falling back
// to the first direct video link.
func (c *Classifier) ExtractURL(content string) (string, bool) {
	if u := c.trusted.FindString(content); u != "" {
		return u, true
	}
	if u := c.videoURL.FindString(content); u != "" {
		return u, true
	}
	return "", false
}

// VideoAttachment returns the first attachment with a video extension.
func (c *Classifier) VideoAttachment(m *discordgo.Message) *discordgo.MessageAttachment {
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		name := strings.ToLower(a.Filename)
		for _, e := range c.extensions {
			if strings.HasSuffix(name, e) {
				return a
			}
		}
	}
	return nil
}

// Classify extracts a clip from m. Links win over attachments.
func (c *Classifier) Classify(m *discordgo.Message) (Clip, bool) {
	if m == nil {
		return Clip{}, false
	}

	clip := Clip{
		ID:        m.ID,
		CreatedAt: m.Timestamp,
		Content:   m.Content,
	}
	if m.Author != nil {
		clip.SubmitterID = m.Author.ID
	}
	clip.SubmitterName = DisplayName(m)

	if u, ok := c.ExtractURL(m.Content); ok {
		clip.URL = u
		clip.Kind = LinkClip
		return clip, true
	}

	if a := c.VideoAttachment(m); a != nil {
		clip.URL = a.URL
		clip.Kind = FileClip
		clip.Filename = a.Filename
		if clip.Content == "" {
			clip.Content = fileClipContent
		}
		return clip, true
	}

	return Clip{}, false
}

// Collect classifies messages and returns the clips newest first.
func (c *Classifier) Collect(msgs []*discordgo.Message) []Clip {
	var out []Clip
	for _, m := range msgs {
		if clip, ok := c.Classify(m); ok {
			out = append(out, clip)
		}
	}
	slices.SortStableFunc(out, func(a, b Clip) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// DisplayName prefers the guild nickname, then the global name, then the
// username of the message author.
func DisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return ""
	}
	return cmp.Or(m.Author.GlobalName, m.Author.Username)
}
