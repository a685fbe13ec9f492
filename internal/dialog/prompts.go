package dialog

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"reportbot/internal/notify"
	"reportbot/internal/schedule"
)

const (
	msgUnsupportedChat = "Sorry, I only work in private chats and groups."
	msgIdleHint        = "Try /explore, /history or /notifications. /help shows everything."
	msgCancelled       = "Okay, cancelled."
	msgUnknownCommand  = "I don't know that command. /help lists what I can do."
	msgAdminOnly       = "Only group administrators can manage notifications here."
	msgPersistFailed   = "Something went wrong saving your request, nothing was changed. Please try again."
	msgNoNotifications = "You have no notifications set up."
	msgRemovedAllFmt   = "Removed all %d notifications."

	msgHelp = "I deliver market, network and lightning report snapshots.\n\n" +
		"/explore — browse current charts\n" +
		"/history — price history over a period\n" +
		"/notifications — schedule recurring deliveries\n" +
		"/cancel — abort the current dialog\n\n" +
		"In groups, commands also take arguments in one message,\n" +
		"e.g. /notifications market 3 hours 09:30"

	msgGroupNotifyHint = "Usage: /notifications <category> <count> <hours|days> [HH:MM]\n" +
		"or /notifications manage [<number>|remove all]"
)

func promptCategoryMenu(verb string, names []string) string {
	return fmt.Sprintf("Which category would you like to %s?\n— %s\n\nReply with a category, or \"cancel\".",
		verb, strings.Join(names, "\n— "))
}

func promptNotifyCategoryMenu(names []string) string {
	return fmt.Sprintf("Which category should I deliver regularly?\n— %s\n\nReply with a category, \"manage\" to review existing ones, or \"cancel\".",
		strings.Join(names, "\n— "))
}

func promptPeriod(category string) string {
	return fmt.Sprintf("How often should I send %s updates?\n"+
		"Send \"<count> <hours|days> [HH:MM]\", e.g. \"3 hours 09:30\" or \"1 day\".\n"+
		"Times are UTC. Reply \"go back\" to pick another category.", category)
}

func promptHistoryPeriod(category string) string {
	return fmt.Sprintf("Over which period should the %s history span?\n"+
		"Send a number of days, or \"all-time\". Reply \"go back\" to pick another category.", category)
}

func promptTargets(category string, targets []string) string {
	return fmt.Sprintf("What would you like to see for %s?\n— %s\n\nReply with one of these, or \"go back\".",
		category, strings.Join(targets, "\n— "))
}

func formatNotificationList(list []notify.Notification) string {
	var b strings.Builder
	b.WriteString("Your notifications:\n")
	for i, n := range list {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, n.Category, n.HumanView)
	}
	b.WriteString("\nSend the number to remove, \"remove all\", or \"go back\".")
	return b.String()
}

func confirmRegistration(category, humanView string, next time.Time) string {
	return fmt.Sprintf("Done! I'll send %s updates %s.\nNext delivery: %s.",
		category, humanView, next.UTC().Format("2006-01-02 15:04 MST"))
}

func unknownCategoryReprompt(menu string) string {
	return "That's not a category I know.\n\n" + menu
}

func contentUnavailableMessage(category string) string {
	return fmt.Sprintf("I couldn't fetch the %s data right now. Please try again in a bit.", category)
}

func duplicateCategoryMessage(category string) string {
	return fmt.Sprintf("A notification for %s already exists. Use /notifications and \"manage\" to remove it first.", category)
}

func removedAllMessage(n int) string {
	if n == 1 {
		return "Removed your only notification."
	}
	return fmt.Sprintf(msgRemovedAllFmt, n)
}

func removedOneMessage(n notify.Notification) string {
	return fmt.Sprintf("Removed the %s notification (%s).", n.Category, n.HumanView)
}

func indexRangeHint(n int) string {
	if n == 1 {
		return "That's not in the list — send 1, \"remove all\", or \"go back\"."
	}
	return fmt.Sprintf("That's not in the list — send a number between 1 and %d, \"remove all\", or \"go back\".", n)
}

// humanView renders a recurrence for people. The parser carries unit
// and count separately exactly so this layer can pluralize.
func humanView(r schedule.Recurrence) string {
	unit := "hour"
	if r.Unit == schedule.UnitDay {
		unit = "day"
	}
	if r.Count == 1 {
		return fmt.Sprintf("every %s at %s UTC", unit, r.TimeOfDay)
	}
	return fmt.Sprintf("every %d %ss at %s UTC", r.Count, unit, r.TimeOfDay)
}

func parseErrorMessage(err error) string {
	switch {
	case errors.Is(err, schedule.ErrInvalidNumber):
		return "The count must be a positive whole number, e.g. \"3 hours\". Try again, or \"go back\"."
	case errors.Is(err, schedule.ErrInvalidUnit):
		return "The unit must be hours or days, e.g. \"2 days\". Try again, or \"go back\"."
	case errors.Is(err, schedule.ErrInvalidTime):
		return "The time must be HH:MM in 24h UTC, e.g. \"09:30\". Try again, or \"go back\"."
	default:
		return "I couldn't read that cadence. Send \"<count> <hours|days> [HH:MM]\", or \"go back\"."
	}
}

// normalizeChoice canonicalizes a menu reply: lowercase, trimmed, any
// leading emoji/punctuation stripped ("⚙️ Manage" -> "manage"),
// interior whitespace collapsed.
func normalizeChoice(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' {
			break
		}
		s = s[size:]
	}
	return strings.Join(strings.Fields(s), " ")
}
