package telegram

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"github.com/hieund/repostbot/internal/browser"
	"github.com/hieund/repostbot/internal/job"
	"github.com/hieund/repostbot/internal/logger"
	"github.com/hieund/repostbot/internal/store"
)

// scheduleInputLayout is the schedule format users type in chat.
const scheduleInputLayout = "02-01-2006 15:04"

const helpText = `I republish short videos to your configured accounts.

/upvideo - create a publish job (share link or video file)
/jobs - show your recent jobs
/canceljob <id> - cancel a pending job
/accounts - list publish profiles
/newprofile - add a publish profile (name + cookie export)
/delprofile <id> - remove a publish profile
/cancel - abort the current flow`

// dispatch routes one authorized message. Commands always win over an
// in-progress flow.
func (c *Connector) dispatch(msg *telego.Message, userID string) error {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		cmd, args, _ := strings.Cut(text, " ")
		cmd, _, _ = strings.Cut(cmd, "@") // strip bot mention
		return c.handleCommand(msg, userID, cmd, strings.TrimSpace(args))
	}

	if sess := c.sessions.get(userID); sess != nil {
		return c.continueFlow(msg, userID, sess)
	}

	c.reply(msg.Chat.ID, helpText)
	return nil
}

func (c *Connector) handleCommand(msg *telego.Message, userID, cmd, args string) error {
	switch cmd {
	case "/start", "/help":
		c.sessions.clear(userID)
		c.reply(msg.Chat.ID, helpText)
		return nil
	case "/cancel":
		c.sessions.clear(userID)
		c.reply(msg.Chat.ID, "Flow cancelled.")
		return nil
	case "/upvideo":
		return c.startUpvideo(msg, userID)
	case "/jobs":
		return c.listJobs(msg, userID)
	case "/canceljob":
		return c.cancelJob(msg, args)
	case "/accounts":
		return c.listAccounts(msg)
	case "/newprofile":
		c.sessions.begin(userID, stepAwaitProfileName)
		c.reply(msg.Chat.ID, "Name for the new profile?")
		return nil
	case "/delprofile":
		return c.deleteProfile(msg, args)
	default:
		c.reply(msg.Chat.ID, "Unknown command. "+helpText)
		return nil
	}
}

// continueFlow advances whichever guided flow the user is inside.
func (c *Connector) continueFlow(msg *telego.Message, userID string, sess *flowSession) error {
	switch sess.step {
	case stepAwaitLink:
		return c.flowLink(msg, sess)
	case stepAwaitAccount:
		return c.flowAccount(msg, sess)
	case stepAwaitCaption:
		return c.flowCaption(msg, sess)
	case stepAwaitSchedule:
		return c.flowSchedule(msg, sess)
	case stepAwaitConfirm:
		return c.flowConfirm(msg, userID, sess)
	case stepAwaitProfileName:
		return c.flowProfileName(msg, sess)
	case stepAwaitProfileCookies:
		return c.flowProfileCookies(msg, userID, sess)
	default:
		c.sessions.clear(userID)
		c.reply(msg.Chat.ID, helpText)
		return nil
	}
}

func (c *Connector) startUpvideo(msg *telego.Message, userID string) error {
	accounts, err := c.store.ListAccounts(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		c.reply(msg.Chat.ID, "No publish profiles yet. Create one with /newprofile first.")
		return nil
	}
	c.sessions.begin(userID, stepAwaitLink)
	c.reply(msg.Chat.ID, "Send a share link (Douyin, TikTok, Facebook) or attach a video file.")
	return nil
}

func (c *Connector) flowLink(msg *telego.Message, sess *flowSession) error {
	if hasVideoAttachment(msg) {
		path, err := c.saveAttachment(msg)
		if err != nil {
			c.logger.Error("failed to save attached video", err)
			c.reply(msg.Chat.ID, "Could not save that file, please try again.")
			return nil
		}
		sess.mediaPath = path
	} else {
		link := ExtractShareLink(msg.Text)
		if link == "" {
			c.reply(msg.Chat.ID, "That does not look like a supported share link. Send a Douyin, TikTok or Facebook link, or attach a video file.")
			return nil
		}
		sess.videoURL = link
	}

	sess.step = stepAwaitAccount
	return c.promptAccountChoice(msg.Chat.ID)
}

func (c *Connector) promptAccountChoice(chatID int64) error {
	accounts, err := c.store.ListAccounts(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	var b strings.Builder
	b.WriteString("Which profile should publish it?\n")
	for i, a := range accounts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Name)
	}
	b.WriteString("Reply with a number or a name.")
	c.reply(chatID, b.String())
	return nil
}

func (c *Connector) flowAccount(msg *telego.Message, sess *flowSession) error {
	accounts, err := c.store.ListAccounts(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	choice := strings.TrimSpace(msg.Text)
	var picked *job.Account
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(accounts) {
		picked = accounts[n-1]
	} else {
		for _, a := range accounts {
			if strings.EqualFold(a.Name, choice) {
				picked = a
				break
			}
		}
	}
	if picked == nil {
		c.reply(msg.Chat.ID, "No such profile, reply with a number from the list or an exact name.")
		return nil
	}

	sess.accountID = picked.ID
	sess.accountName = picked.Name
	sess.step = stepAwaitCaption
	c.reply(msg.Chat.ID, "Caption for the post? Send '-' for none.")
	return nil
}

func (c *Connector) flowCaption(msg *telego.Message, sess *flowSession) error {
	caption := strings.TrimSpace(msg.Text)
	if caption == "-" {
		caption = ""
	}
	sess.caption = caption
	sess.step = stepAwaitSchedule
	c.reply(msg.Chat.ID, "When should it go out? Send 'now' or a time as DD-MM-YYYY HH:mm.")
	return nil
}

func (c *Connector) flowSchedule(msg *telego.Message, sess *flowSession) error {
	input := strings.TrimSpace(msg.Text)

	if !strings.EqualFold(input, "now") {
		ts, err := time.ParseInLocation(scheduleInputLayout, input, time.Local)
		if err != nil {
			c.reply(msg.Chat.ID, "Could not read that time. Use DD-MM-YYYY HH:mm, for example 25-12-2026 18:30, or send 'now'.")
			return nil
		}
		sess.scheduleAt = &ts
	}
	sess.step = stepAwaitConfirm

	source := sess.videoURL
	if sess.mediaPath != "" {
		source = "attached video file"
	}
	caption := sess.caption
	if caption == "" {
		caption = "none"
	}
	when := "as soon as possible"
	if sess.scheduleAt != nil {
		when = sess.scheduleAt.Format(scheduleInputLayout)
	}
	c.reply(msg.Chat.ID, fmt.Sprintf(
		"Please confirm:\n🎬 Video: %s\n👤 Profile: %s\n📝 Caption: %s\n🕒 When: %s\n\nSend 'yes' to queue it, or /cancel.",
		source, sess.accountName, caption, when))
	return nil
}

func (c *Connector) flowConfirm(msg *telego.Message, userID string, sess *flowSession) error {
	answer := strings.ToLower(strings.TrimSpace(msg.Text))
	if answer != "yes" && answer != "y" && answer != "ok" {
		c.reply(msg.Chat.ID, "Send 'yes' to queue the job, or /cancel to abort.")
		return nil
	}

	id, err := c.store.CreateJob(c.ctx, store.CreateJobParams{
		VideoURL:     sess.videoURL,
		MediaPath:    sess.mediaPath,
		Caption:      sess.caption,
		ScheduleTime: sess.scheduleAt,
		AccountID:    sess.accountID,
		Requester:    userID,
	})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	scheduleAt := sess.scheduleAt
	c.sessions.clear(userID)

	when := "as soon as possible"
	if scheduleAt != nil {
		when = scheduleAt.Format(scheduleInputLayout)
	}
	c.reply(msg.Chat.ID, fmt.Sprintf("📋 Job %s queued, it will run %s.", id, when))
	c.logger.Info("job created via chat",
		logger.Field{Key: "job_id", Value: id},
		logger.Field{Key: "requester", Value: userID})
	return nil
}

func (c *Connector) flowProfileName(msg *telego.Message, sess *flowSession) error {
	name := strings.TrimSpace(msg.Text)
	if name == "" {
		c.reply(msg.Chat.ID, "Profile name cannot be empty.")
		return nil
	}
	sess.profileName = name
	sess.step = stepAwaitProfileCookies
	c.reply(msg.Chat.ID, "Now send the cookie export JSON (paste it or attach the .json file).")
	return nil
}

func (c *Connector) flowProfileCookies(msg *telego.Message, userID string, sess *flowSession) error {
	raw := msg.Text
	if msg.Document != nil {
		data, err := c.downloadFile(msg.Document.FileID)
		if err != nil {
			c.logger.Error("failed to download cookie file", err)
			c.reply(msg.Chat.ID, "Could not read that file, please try again.")
			return nil
		}
		raw = string(data)
	}

	cookies, skipped, err := browser.ParseCookieExport(raw)
	if err != nil {
		c.reply(msg.Chat.ID, "That is not a valid cookie export. Paste the JSON produced by the J2Team Cookies extension.")
		return nil
	}

	id, err := c.store.CreateAccount(c.ctx, sess.profileName, raw)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	c.sessions.clear(userID)

	reply := fmt.Sprintf("✅ Profile %q saved (%d cookies", sess.profileName, len(cookies))
	if skipped > 0 {
		reply += fmt.Sprintf(", %d malformed records skipped", skipped)
	}
	reply += fmt.Sprintf(").\nID: %s", id)
	c.reply(msg.Chat.ID, reply)
	return nil
}

func (c *Connector) listJobs(msg *telego.Message, userID string) error {
	jobs, err := c.store.GetJobsByRequester(c.ctx, userID, 10)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 {
		c.reply(msg.Chat.ID, "You have no jobs yet. Start one with /upvideo.")
		return nil
	}

	var b strings.Builder
	b.WriteString("Your recent jobs:\n")
	for _, j := range jobs {
		fmt.Fprintf(&b, "%s %s | %s", statusEmoji(j.Status), j.ID, j.Status)
		if j.ScheduleTime != nil {
			fmt.Fprintf(&b, " | due %s", j.ScheduleTime.Format(scheduleInputLayout))
		}
		if j.Error != "" {
			fmt.Fprintf(&b, "\n   ↳ %s", j.Error)
		}
		b.WriteString("\n")
	}
	c.reply(msg.Chat.ID, b.String())
	return nil
}

func (c *Connector) cancelJob(msg *telego.Message, args string) error {
	if args == "" {
		c.reply(msg.Chat.ID, "Usage: /canceljob <job id>")
		return nil
	}
	deleted, err := c.store.DeleteJob(c.ctx, args)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if !deleted {
		c.reply(msg.Chat.ID, "No cancellable job with that ID. Only pending jobs can be cancelled.")
		return nil
	}
	c.reply(msg.Chat.ID, fmt.Sprintf("🗑 Job %s cancelled.", args))
	return nil
}

func (c *Connector) listAccounts(msg *telego.Message) error {
	accounts, err := c.store.ListAccounts(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		c.reply(msg.Chat.ID, "No publish profiles yet. Create one with /newprofile.")
		return nil
	}
	var b strings.Builder
	b.WriteString("Publish profiles:\n")
	for _, a := range accounts {
		fmt.Fprintf(&b, "• %s (id %s)\n", a.Name, a.ID)
	}
	c.reply(msg.Chat.ID, b.String())
	return nil
}

func (c *Connector) deleteProfile(msg *telego.Message, args string) error {
	if args == "" {
		c.reply(msg.Chat.ID, "Usage: /delprofile <profile id>. Find IDs with /accounts.")
		return nil
	}
	deleted, err := c.store.DeleteAccount(c.ctx, args)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if !deleted {
		c.reply(msg.Chat.ID, "No profile with that ID.")
		return nil
	}
	c.reply(msg.Chat.ID, "🗑 Profile removed.")
	return nil
}

func statusEmoji(s job.Status) string {
	switch s {
	case job.StatusCompleted:
		return "✅"
	case job.StatusFailed:
		return "❌"
	case job.StatusProcessing:
		return "⏳"
	default:
		return "📋"
	}
}

func hasVideoAttachment(msg *telego.Message) bool {
	if msg.Video != nil {
		return true
	}
	return msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "video/")
}

// saveAttachment downloads a user-attached video into the media directory
// and returns the saved path.
func (c *Connector) saveAttachment(msg *telego.Message) (string, error) {
	fileID := ""
	if msg.Video != nil {
		fileID = msg.Video.FileID
	} else if msg.Document != nil {
		fileID = msg.Document.FileID
	}
	if fileID == "" {
		return "", fmt.Errorf("no attachment present")
	}

	name := fmt.Sprintf("upload_%d_%s.mp4", time.Now().UnixMilli(), uuid.NewString()[:8])
	path := filepath.Join(c.mediaDir, name)

	data, err := c.downloadFile(fileID)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save attachment: %w", err)
	}
	return path, nil
}

// downloadFile fetches a Telegram-hosted file by its file ID.
func (c *Connector) downloadFile(fileID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(c.ctx, 2*time.Minute)
	defer cancel()

	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	resp, err := c.files.Get(c.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
