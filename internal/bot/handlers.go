package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/jobradar/internal/model"
	"github.com/hitoshi/jobradar/internal/telegram"
)

// UserService はボットが使用するユーザー管理のインターフェース。
type UserService interface {
	Register(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error)
	Get(ctx context.Context, telegramID int64) (*model.User, error)
	AddCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error)
	RemoveCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error)
	AddKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error)
	RemoveKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error)
	ClearFilters(ctx context.Context, telegramID int64) (bool, error)
	Pause(ctx context.Context, telegramID int64) error
	Resume(ctx context.Context, telegramID int64) error
	ListCategories(ctx context.Context) ([]model.Category, error)
}

const helpText = "🔍 *Job Posting Bot Help*\n\n" +
	"*Available Commands:*\n" +
	"/start - Start the bot\n" +
	"/help - Show this help message\n" +
	"/filter category - Add a category filter\n" +
	"/filter keyword - Add a keyword filter\n" +
	"/filter remove - Remove one of your filters\n" +
	"/showfilters - Display your current filters\n" +
	"/clearfilters - Remove all your filters\n" +
	"/pause - Pause notifications\n" +
	"/resume - Resume notifications\n" +
	"/cancel - Cancel the current operation\n\n" +
	"*How to use filters:*\n" +
	"• *Category filters* - Filter jobs by their category (e.g., IT, Marketing)\n" +
	"• *Keyword filters* - Filter jobs by keywords in their title (e.g., Python, Manager)\n\n" +
	"If you have both category and keyword filters, jobs must match at least one of each type."

const filterUsageText = "What would you like to do?\n\n" +
	"/filter category - Add a category filter\n" +
	"/filter keyword - Add a keyword filter\n" +
	"/filter remove - Remove one of your filters\n" +
	"/cancel - Cancel"

const notRegisteredText = "Please use /start first to register."

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}
	b.handleText(ctx, msg, text)
}

// handleCommand はコマンドを処理する。どのコマンドも進行中の会話を打ち切る。
func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, text string) {
	chatID := msg.Chat.ID
	sess := b.sessionFor(chatID)
	sess.state = stateIdle
	sess.choices = nil

	fields := strings.Fields(text)
	command := fields[0]
	args := fields[1:]

	switch command {
	case "/start":
		b.handleStart(ctx, msg)
	case "/help":
		b.reply(ctx, chatID, helpText)
	case "/filter":
		b.handleFilter(ctx, msg, args)
	case "/showfilters":
		b.handleShowFilters(ctx, msg)
	case "/clearfilters":
		b.handleClearFilters(ctx, msg)
	case "/pause":
		b.handlePause(ctx, msg)
	case "/resume":
		b.handleResume(ctx, msg)
	case "/cancel":
		b.reply(ctx, chatID, "Filter operation cancelled.")
	default:
		b.reply(ctx, chatID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	from := msg.From
	if _, err := b.users.Register(ctx, from.ID, from.Username, from.FirstName, from.LastName); err != nil {
		b.logger.Error("ユーザー登録に失敗しました",
			slog.Int64("telegram_id", from.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, msg.Chat.ID, "Registration failed. Please try again later.")
		return
	}

	welcome := fmt.Sprintf("👋 Hello %s!\n\n"+
		"I'm your Job Posting Bot. I'll notify you about new job postings from:\n"+
		"• JobSearch.az\n"+
		"• HelloJob.az\n"+
		"• SmartJob.az\n"+
		"• PASHA Bank Careers\n"+
		"• Kapital Bank HR\n"+
		"• Busy.az\n"+
		"• Glorri Jobs\n\n"+
		"You can set up filters to receive only the jobs you're interested in.\n\n"+
		"Use /help to see available commands.", from.FirstName)
	b.reply(ctx, msg.Chat.ID, welcome)
}

func (b *Bot) handleFilter(ctx context.Context, msg *telegram.Message, args []string) {
	chatID := msg.Chat.ID
	if len(args) == 0 {
		b.reply(ctx, chatID, filterUsageText)
		return
	}

	sess := b.sessionFor(chatID)

	switch strings.ToLower(args[0]) {
	case "category":
		prompt := "Please enter a category name to filter by (or /cancel to abort):"
		if categories, err := b.users.ListCategories(ctx); err == nil && len(categories) > 0 {
			names := make([]string, 0, len(categories))
			for _, c := range categories {
				names = append(names, c.Name)
			}
			prompt = "Available categories:\n• " + strings.Join(names, "\n• ") + "\n\n" + prompt
		}
		sess.state = stateAwaitingCategoryName
		b.reply(ctx, chatID, prompt)

	case "keyword":
		sess.state = stateAwaitingKeywordName
		b.reply(ctx, chatID, "Please enter a keyword to filter job titles by (or /cancel to abort):")

	case "remove":
		b.startRemoval(ctx, msg, sess)

	default:
		b.reply(ctx, chatID, filterUsageText)
	}
}

// startRemoval は削除候補の番号付きリストを提示して選択待ちに入る。
func (b *Bot) startRemoval(ctx context.Context, msg *telegram.Message, sess *session) {
	chatID := msg.Chat.ID

	u, err := b.users.Get(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("フィルタの取得に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Something went wrong. Please try again later.")
		return
	}

	if len(u.Categories) == 0 && len(u.Keywords) == 0 {
		b.reply(ctx, chatID, "You don't have any filters set up yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Select a filter to remove by number (or /cancel to abort):\n\n")
	var choices []removalChoice
	for _, c := range u.Categories {
		choices = append(choices, removalChoice{isCategory: true, value: c.Name})
		fmt.Fprintf(&sb, "%d. Category: %s\n", len(choices), c.Name)
	}
	for _, k := range u.Keywords {
		choices = append(choices, removalChoice{isCategory: false, value: k.Word})
		fmt.Fprintf(&sb, "%d. Keyword: %s\n", len(choices), k.Word)
	}

	sess.state = stateAwaitingRemovalChoice
	sess.choices = choices
	b.reply(ctx, chatID, sb.String())
}

// handleText はコマンド以外のテキストを会話状態に応じて処理する。
func (b *Bot) handleText(ctx context.Context, msg *telegram.Message, text string) {
	chatID := msg.Chat.ID
	sess := b.sessionFor(chatID)

	switch sess.state {
	case stateAwaitingCategoryName:
		sess.state = stateIdle
		b.addCategoryFilter(ctx, msg, text)

	case stateAwaitingKeywordName:
		sess.state = stateIdle
		b.addKeywordFilter(ctx, msg, text)

	case stateAwaitingRemovalChoice:
		choices := sess.choices
		sess.state = stateIdle
		sess.choices = nil
		b.removeChosenFilter(ctx, msg, text, choices)

	default:
		b.reply(ctx, chatID, "Use /help to see available commands.")
	}
}

func (b *Bot) addCategoryFilter(ctx context.Context, msg *telegram.Message, name string) {
	chatID := msg.Chat.ID

	added, err := b.users.AddCategoryFilter(ctx, msg.From.ID, name)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("カテゴリフィルタの追加に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Failed to add the filter. Please try again later.")
		return
	}

	if added {
		b.reply(ctx, chatID, fmt.Sprintf("✅ Added category filter: %s\n\n"+
			"You will now receive notifications for jobs in this category.", name))
	} else {
		b.reply(ctx, chatID, fmt.Sprintf("You already have a filter for the category: %s", name))
	}
}

func (b *Bot) addKeywordFilter(ctx context.Context, msg *telegram.Message, word string) {
	chatID := msg.Chat.ID

	added, err := b.users.AddKeywordFilter(ctx, msg.From.ID, word)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("キーワードフィルタの追加に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Failed to add the filter. Please try again later.")
		return
	}

	if added {
		b.reply(ctx, chatID, fmt.Sprintf("✅ Added keyword filter: %s\n\n"+
			"You will now receive notifications for jobs with this keyword in the title.", word))
	} else {
		b.reply(ctx, chatID, fmt.Sprintf("You already have a filter for the keyword: %s", word))
	}
}

func (b *Bot) removeChosenFilter(ctx context.Context, msg *telegram.Message, text string, choices []removalChoice) {
	chatID := msg.Chat.ID

	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(choices) {
		b.reply(ctx, chatID, "Invalid choice. Filter operation cancelled.")
		return
	}

	choice := choices[n-1]
	var removed bool
	if choice.isCategory {
		removed, err = b.users.RemoveCategoryFilter(ctx, msg.From.ID, choice.value)
	} else {
		removed, err = b.users.RemoveKeywordFilter(ctx, msg.From.ID, choice.value)
	}
	if err != nil {
		b.logger.Error("フィルタの削除に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Failed to remove the filter. Please try again later.")
		return
	}

	kind := "keyword"
	if choice.isCategory {
		kind = "category"
	}
	if removed {
		b.reply(ctx, chatID, fmt.Sprintf("✅ Removed %s filter: %s", kind, choice.value))
	} else {
		b.reply(ctx, chatID, fmt.Sprintf("Failed to remove %s filter: %s", kind, choice.value))
	}
}

func (b *Bot) handleShowFilters(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	u, err := b.users.Get(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("フィルタの取得に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Something went wrong. Please try again later.")
		return
	}

	if len(u.Categories) == 0 && len(u.Keywords) == 0 {
		b.reply(ctx, chatID, "You don't have any filters set up yet.\n\nUse /filter to add filters.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Your current filters:*\n\n")
	if len(u.Categories) > 0 {
		sb.WriteString("*Categories:*\n")
		for _, c := range u.Categories {
			fmt.Fprintf(&sb, "• %s\n", c.Name)
		}
		sb.WriteString("\n")
	}
	if len(u.Keywords) > 0 {
		sb.WriteString("*Keywords:*\n")
		for _, k := range u.Keywords {
			fmt.Fprintf(&sb, "• %s\n", k.Word)
		}
	}
	b.reply(ctx, chatID, sb.String())
}

func (b *Bot) handleClearFilters(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	cleared, err := b.users.ClearFilters(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("フィルタの一括削除に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Failed to clear filters. Please try again later.")
		return
	}

	if cleared {
		b.reply(ctx, chatID, "✅ All your filters have been cleared.")
	} else {
		b.reply(ctx, chatID, "You don't have any filters set up yet.")
	}
}

func (b *Bot) handlePause(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	if err := b.users.Pause(ctx, msg.From.ID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("通知の一時停止に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Failed to pause notifications. Please try again later.")
		return
	}

	b.reply(ctx, chatID, "⏸️ Notifications paused. You will no longer receive job updates.\n\n"+
		"Use /resume to start receiving notifications again.")
}

func (b *Bot) handleResume(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	if err := b.users.Resume(ctx, msg.From.ID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			b.reply(ctx, chatID, notRegisteredText)
			return
		}
		b.logger.Error("通知の再開に失敗しました",
			slog.Int64("telegram_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, chatID, "Failed to resume notifications. Please try again later.")
		return
	}

	b.reply(ctx, chatID, "▶️ Notifications resumed. You will now receive job updates again.")
}
