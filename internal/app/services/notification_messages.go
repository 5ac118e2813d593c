package services

import (
	"fmt"
	"unicode/utf8"

	"github.com/communitylink/communitylink/internal/app/models"
)

func appliedMessage(username, title string) string {
	return fmt.Sprintf("%s requested to join '%s'.", username, title)
}

func reappliedMessage(username, title string) string {
	return fmt.Sprintf("%s requested to join '%s' again.", username, title)
}

// applyNoticePrefix is the start of both apply messages; a pending cancel retracts
// the newest notice beginning with it
func applyNoticePrefix(username string) string {
	return username + " requested"
}

func decisionMessage(title string, status models.ApplicationStatus) string {
	return fmt.Sprintf("Your application for '%s' was %s.", title, status.Label())
}

func removedMessage(title string) string {
	return fmt.Sprintf("You were removed from '%s' by the organizer.", title)
}

func cancelledMessage(username, title string) string {
	return fmt.Sprintf("%s cancelled their confirmed participation in '%s'.", username, title)
}

func actionChangedMessage(title string) string {
	return fmt.Sprintf("The action '%s' was changed by the organizer.", title)
}

func actionDeletedMessage(title string) string {
	return fmt.Sprintf("Attention: the action '%s' was cancelled by the organizer.", title)
}

// truncateMessage cuts s to the stored message limit without splitting a rune
func truncateMessage(s string) string {
	if utf8.RuneCountInString(s) <= models.MaxMessageLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:models.MaxMessageLength])
}
