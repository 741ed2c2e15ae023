package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zaqqye/gradebot_v1/internal/binder"
	"github.com/zaqqye/gradebot_v1/internal/grading"
	"github.com/zaqqye/gradebot_v1/internal/pipeline"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/ws"
)

func (b *Bot) handleJoin(m *discordgo.MessageCreate, content string) {
	defer b.deleteMessage(m)

	parts := strings.Fields(content)
	if len(parts) != 2 {
		b.reply(m.Author.ID, "Usage: `!join GROUP`. One group per person; the choice is permanent.")
		return
	}
	groupName := strings.ToUpper(parts[1])

	displayName := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		displayName = m.Member.Nick
	}

	res, err := b.binder.ClaimGroup(m.Author.ID, displayName, groupName)
	if err != nil {
		b.reply(m.Author.ID, bindErrorText(err))
		return
	}
	b.hub.Broadcast(ws.Event{
		Type:           ws.EventIdentityBound,
		PlatformUserID: m.Author.ID,
		Group:          groupName,
	})
	b.reply(m.Author.ID, fmt.Sprintf(
		"Joined **%s**. Your roster code is `%s`. You can now upload `.html` answer sheets for grading.",
		groupName, derefStr(res.Identity.RosterNumber)))
}

func (b *Bot) handleLogin(m *discordgo.MessageCreate, content string) {
	// Delete first: the message carries a secret.
	b.deleteMessage(m)

	parts := strings.Fields(content)
	if len(parts) != 3 {
		b.reply(m.Author.ID, "Usage: `!login NUMBER SECRET`")
		return
	}
	number, secret := parts[1], parts[2]

	res, err := b.binder.SecretLogin(m.Author.ID, number, secret, b.groupFromRoles(m))
	if err != nil {
		b.reply(m.Author.ID, bindErrorText(err))
		return
	}
	if res.AlreadyBound {
		b.reply(m.Author.ID, fmt.Sprintf("You are already linked to **%s** (%s). Nothing changed.",
			res.Identity.DisplayName, res.Identity.Group.Name))
		return
	}
	b.hub.Broadcast(ws.Event{
		Type:           ws.EventIdentityBound,
		PlatformUserID: m.Author.ID,
		Group:          res.Identity.Group.Name,
	})
	b.reply(m.Author.ID, fmt.Sprintf("Linked to roster entry **%s** in **%s**. You can now upload answer sheets.",
		res.Identity.DisplayName, res.Identity.Group.Name))
}

func (b *Bot) handleList(m *discordgo.MessageCreate) {
	defer b.deleteMessage(m)

	subs, err := b.store.ListSubmissions(m.Author.ID)
	if err != nil {
		b.reply(m.Author.ID, "Could not read your submissions, please try again later.")
		return
	}
	if len(subs) == 0 {
		b.reply(m.Author.ID, "No submissions yet. Upload an `.html` answer sheet to get started.")
		return
	}
	var sb strings.Builder
	sb.WriteString("**Your submissions**:\n")
	for _, s := range subs {
		fmt.Fprintf(&sb, "- %s, attempt %d (%s)\n", s.AssignmentTitle, s.AttemptNumber, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	b.reply(m.Author.ID, sb.String())
}

func (b *Bot) handleAttachments(m *discordgo.MessageCreate) {
	if b.welcomeChannelID != "" && m.ChannelID == b.welcomeChannelID {
		b.reply(m.Author.ID, "The welcome channel is for joining groups only. Please upload answer sheets in a homework channel.")
		b.deleteMessage(m)
		return
	}

	for _, att := range m.Attachments {
		if strings.EqualFold(filepath.Ext(att.Filename), ".html") {
			b.processSubmission(m, att)
			return
		}
	}
	b.reply(m.Author.ID, "Only `.html` answer sheets are graded.")
	b.deleteMessage(m)
}

func (b *Bot) processSubmission(m *discordgo.MessageCreate, att *discordgo.MessageAttachment) {
	b.reply(m.Author.ID, "Received your answer sheet, grading is in progress...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	data, err := b.downloadAttachment(ctx, att)
	if err != nil {
		b.reply(m.Author.ID, "Could not download your file, please upload it again.")
		b.deleteMessage(m)
		return
	}
	b.deleteMessage(m)

	outcome, err := b.pipeline.Process(ctx, m.Author.ID, att.Filename, data)
	if err != nil {
		b.reply(m.Author.ID, pipelineErrorText(err))
		return
	}

	text := fmt.Sprintf(
		"**Grading complete**\nStudent: %s (%s)\n%s, attempt %d\nBoth grading dimensions finished.",
		outcome.Identity.DisplayName,
		outcome.Submission.RosterNumber,
		outcome.Submission.AssignmentTitle,
		outcome.Submission.AttemptNumber,
	)
	if outcome.MirrorFailed {
		text += "\n(note: the cloud backup failed; your submission is recorded and staff were notified)"
	}

	f, err := os.Open(outcome.ReportPath)
	if err != nil {
		b.reply(m.Author.ID, text+"\n(the report file could not be attached)")
		return
	}
	defer f.Close()
	b.replyWithFile(m.Author.ID, text, filepath.Base(outcome.ReportPath), f)
}

// bindErrorText maps every binder outcome to user-facing text. Unknown
// errors get a generic line; nothing is swallowed silently.
func bindErrorText(err error) string {
	switch {
	case errors.Is(err, binder.ErrAlreadyClaimed):
		return "You already have a roster identity. Each person gets exactly one; it cannot be changed."
	case errors.Is(err, binder.ErrAlreadyBound):
		return "That roster entry is already linked to another Discord account. Contact your teacher if this is wrong."
	case errors.Is(err, binder.ErrAmbiguous):
		return "That roster number exists in several groups. Pick up your group role first, then retry `!login`."
	case errors.Is(err, binder.ErrBadSecret):
		return "Roster number or secret is incorrect."
	default:
		return "Something went wrong while linking your account, please try again later."
	}
}

func pipelineErrorText(err error) string {
	var timeoutErr *grading.TimeoutError
	var providerErr *grading.ProviderError
	switch {
	case errors.Is(err, pipeline.ErrNotBound):
		return "You are not registered yet. Use `!join GROUP` or `!login NUMBER SECRET` first."
	case errors.Is(err, pipeline.ErrBusy):
		return "Your previous submission is still being graded, please wait for its report."
	case errors.Is(err, grading.ErrNoRubric):
		return "This assignment has no grading rubric configured. Please check the assignment title with your teacher."
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("Grading timed out (%s). Nothing was recorded; please submit again.", timeoutErr.Error())
	case errors.As(err, &providerErr):
		return "The grading service rejected the request. Nothing was recorded; please submit again later."
	case errors.Is(err, store.ErrSequencingConflict):
		return "Your submission collided with another one. Nothing was recorded; please submit again."
	default:
		return "Processing failed: " + err.Error()
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
