// Package bot is the chat-platform adapter. It turns Discord messages into
// core operations (binding, listing, submission) and renders every outcome
// back to the user as an explicit message. Connection/session management is
// discordgo's job; business rules live behind the binder and pipeline.
package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zaqqye/gradebot_v1/internal/binder"
	"github.com/zaqqye/gradebot_v1/internal/pipeline"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/ws"
)

const maxAttachmentSize = 8 << 20 // Discord's own cap for bot-visible files

type Bot struct {
	session          *discordgo.Session
	binder           *binder.Binder
	pipeline         *pipeline.Pipeline
	store            *store.Store
	hub              *ws.EventHub
	welcomeChannelID string
	httpClient       *http.Client
}

func New(token string, b *binder.Binder, p *pipeline.Pipeline, s *store.Store, hub *ws.EventHub, welcomeChannelID string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordgo.New: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	bot := &Bot{
		session:          session,
		binder:           b,
		pipeline:         p,
		store:            s,
		hub:              hub,
		welcomeChannelID: welcomeChannelID,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
	}
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)
	return bot, nil
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	log.Printf("bot: connected as %s", s.State.User.Username)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	content := strings.TrimSpace(m.Content)
	lower := strings.ToLower(content)

	switch {
	case lower == "!help":
		b.reply(m.Author.ID, helpText)
		b.deleteMessage(m)
	case strings.HasPrefix(lower, "!join"):
		b.handleJoin(m, content)
	case strings.HasPrefix(lower, "!login"):
		b.handleLogin(m, content)
	case lower == "!list":
		b.handleList(m)
	case len(m.Attachments) > 0:
		b.handleAttachments(m)
	}
}

const helpText = "**Homework grading bot commands**:\n" +
	"1. Upload an `.html` answer sheet - it is graded automatically\n" +
	"2. `!join GROUP` - claim a seat in a group (one per person, permanent)\n" +
	"3. `!login NUMBER SECRET` - link your Discord account to your roster entry\n" +
	"4. `!list` - list your own submissions\n" +
	"5. `!help` - show this message"

// reply DMs the user; channel replies would leak grading results.
func (b *Bot) reply(userID, content string) {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		log.Printf("bot: cannot open DM with %s: %v", userID, err)
		return
	}
	if _, err := b.session.ChannelMessageSend(ch.ID, content); err != nil {
		log.Printf("bot: DM to %s failed: %v", userID, err)
	}
}

func (b *Bot) replyWithFile(userID, content, filename string, file io.Reader) {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		log.Printf("bot: cannot open DM with %s: %v", userID, err)
		return
	}
	_, err = b.session.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content: content,
		Files:   []*discordgo.File{{Name: filename, ContentType: "text/html", Reader: file}},
	})
	if err != nil {
		log.Printf("bot: DM with file to %s failed: %v", userID, err)
	}
}

// deleteMessage removes the triggering channel message to keep channels
// clean and to avoid leaving secrets visible. Best effort.
func (b *Bot) deleteMessage(m *discordgo.MessageCreate) {
	if m.GuildID == "" {
		return // DMs cannot be deleted
	}
	if err := b.session.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		log.Printf("bot: cannot delete message %s: %v", m.ID, err)
	}
}

func (b *Bot) downloadAttachment(ctx context.Context, att *discordgo.MessageAttachment) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize))
}

// groupFromRoles maps the member's Discord roles onto a known group name so
// secret logins can be group-scoped without the user typing the group.
func (b *Bot) groupFromRoles(m *discordgo.MessageCreate) string {
	if m.GuildID == "" || m.Member == nil {
		return ""
	}
	for _, roleID := range m.Member.Roles {
		role, err := b.session.State.Role(m.GuildID, roleID)
		if err != nil {
			continue
		}
		if _, err := b.store.FindGroup(role.Name); err == nil {
			return role.Name
		}
	}
	return ""
}
