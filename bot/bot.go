package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/djgianterkancelik-svg/xentix/engine"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot is the conversational adapter: each command is one engine call plus
// message formatting.
type Bot struct {
	api       *tgbotapi.BotAPI
	engine    *engine.Engine
	webAppURL string
}

func New(api *tgbotapi.BotAPI, eng *engine.Engine, webAppURL string) *Bot {
	return &Bot{api: api, engine: eng, webAppURL: webAppURL}
}

// Run long-polls for updates until Stop is called.
func (b *Bot) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	log.Printf("[bot] authorized as @%s", b.api.Self.UserName)
	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		if update.Message.IsCommand() {
			b.handleCommand(update.Message)
		} else {
			b.reply(update.Message.Chat.ID, "Use /help for the list of commands")
		}
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	userID := msg.From.ID
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "mine":
		b.handleMine(msg.Chat.ID, userID)
	case "balance":
		b.handleBalance(msg.Chat.ID, userID)
	case "tasks":
		b.handleTasks(msg.Chat.ID, userID)
	case "referral":
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"🔗 Your Referral Link:\n%s\n\nShare this link with friends. You'll earn %.0f XTX for each friend who joins!",
			b.engine.ReferralLink(userID), engine.ReferralBonus))
	case "help":
		b.reply(msg.Chat.ID, "Xentix (XTX) Mining Simulator Commands:\n\n"+
			"/start - Start mining\n"+
			"/mine - Mine XTX tokens\n"+
			"/balance - Check your balance\n"+
			"/tasks - View available tasks\n"+
			"/referral - Get your referral link\n"+
			"/help - Show this help message\n\n"+
			"Use the mini app for the best experience!")
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help for the list of commands")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	userID := msg.From.ID
	username := msg.From.UserName
	if username == "" {
		username = fmt.Sprintf("user%d", userID)
	}
	referrerID := parseReferralPayload(msg.CommandArguments())

	created, err := b.engine.Register(userID, username, referrerID)
	if err != nil {
		log.Printf("[bot] register %d: %v", userID, err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again later")
		return
	}

	if created {
		b.reply(msg.Chat.ID, "Welcome to Xentix (XTX) Mining Simulator! 🚀\n\nYou can start mining tokens and completing tasks to earn XTX. Use the mini app to access all features.")
		if referrerID != nil {
			b.reply(msg.Chat.ID, "You joined through a referral link! Both you and your referrer received a bonus!")
		}
	} else {
		b.reply(msg.Chat.ID, "Welcome back to Xentix (XTX) Mining Simulator! 📱\n\nUse the mini app to continue mining and earning XTX.")
	}

	if b.webAppURL != "" {
		open := tgbotapi.NewMessage(msg.Chat.ID, "Open the Xentix Mining app:")
		open.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.InlineKeyboardButton{
				Text:   "⛏️ Open Mining App",
				WebApp: &tgbotapi.WebAppInfo{URL: b.webAppURL},
			}),
		)
		if _, err := b.api.Send(open); err != nil {
			log.Printf("[bot] send keyboard: %v", err)
		}
	}
}

func (b *Bot) handleMine(chatID, userID int64) {
	res, err := b.engine.Mine(userID)
	if err != nil {
		var cooldown *engine.CooldownError
		switch {
		case errors.Is(err, engine.ErrUserNotFound):
			b.reply(chatID, "You need to start mining first! Use /start to begin.")
		case errors.As(err, &cooldown):
			b.reply(chatID, fmt.Sprintf("You can mine again in %d seconds", cooldown.SecondsRemaining))
		default:
			log.Printf("[bot] mine %d: %v", userID, err)
			b.reply(chatID, "Something went wrong, please try again later")
		}
		return
	}
	b.reply(chatID, fmt.Sprintf("Successfully mined %.4f XTX!", res.Amount))
	b.reply(chatID, fmt.Sprintf("Updated Balance: %.4f XTX", res.Balance))
}

func (b *Bot) handleBalance(chatID, userID int64) {
	stats, err := b.engine.Stats(userID)
	if err != nil {
		if errors.Is(err, engine.ErrUserNotFound) {
			b.reply(chatID, "You need to start mining first! Use /start to begin.")
		} else {
			log.Printf("[bot] stats %d: %v", userID, err)
			b.reply(chatID, "Something went wrong, please try again later")
		}
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"💰 Your XTX Balance: %.4f XTX\n⛏️ Mining Rate: %.4f XTX/min\n👥 Referrals: %d\n✅ Tasks Completed: %d",
		stats.Balance, stats.MiningRate, stats.Referrals, stats.CompletedTasks))
}

func (b *Bot) handleTasks(chatID, userID int64) {
	tasks, err := b.engine.AvailableTasks(userID)
	if err != nil {
		log.Printf("[bot] tasks %d: %v", userID, err)
		b.reply(chatID, "Something went wrong, please try again later")
		return
	}
	if len(tasks) == 0 {
		b.reply(chatID, "You have completed all available tasks for now!")
		return
	}
	var sb strings.Builder
	sb.WriteString("📋 Available Tasks:\n\n")
	for i, task := range tasks {
		fmt.Fprintf(&sb, "%d. %s - %g XTX\n%s\n\n", i+1, task.Title, task.Reward, task.Description)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("[bot] send failed: %v", err)
	}
}

// parseReferralPayload extracts the referrer id from a /start payload of the
// form "ref<digits>". Anything else is ignored.
func parseReferralPayload(payload string) *int64 {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "ref") {
		return nil
	}
	id, err := strconv.ParseInt(payload[3:], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
