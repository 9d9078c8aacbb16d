package chat

import (
	"strings"

	"github.com/wolfman30/vetbot/internal/session"
)

const capabilities = "I can help you with pet care questions, vaccination schedules, diet & nutrition advice, and booking vet appointments. How can I help you today?"

// Greeting renders the local welcome used when the service offers none. Without
// a user name the configured welcome message is returned unchanged.
func Greeting(uc *session.Context, welcome string) string {
	if uc == nil || strings.TrimSpace(uc.UserName) == "" {
		return welcome
	}
	var b strings.Builder
	b.WriteString("Hello, ")
	b.WriteString(strings.TrimSpace(uc.UserName))
	b.WriteString("! 👋 I'm your virtual veterinary assistant.")
	if pet := strings.TrimSpace(uc.PetName); pet != "" {
		b.WriteString(" I see you're here about ")
		b.WriteString(pet)
		b.WriteString(".")
	}
	b.WriteString(" ")
	b.WriteString(capabilities)
	return b.String()
}
