package devserver

import (
	"strings"

	"github.com/wolfman30/vetbot/internal/session"
)

type cannedReply struct {
	keywords []string
	text     string
}

var cannedReplies = []cannedReply{
	{
		keywords: []string{"emergency", "bleeding", "poison", "seizure", "not breathing"},
		text:     "This sounds like it could be an emergency. Please call your nearest emergency veterinary clinic right away.",
	},
	{
		keywords: []string{"vaccin", "shot", "rabies", "booster"},
		text:     "Puppies and kittens usually start core vaccines at 6-8 weeks with boosters every 3-4 weeks until 16 weeks. Adult pets typically need boosters every 1-3 years. Would you like to book a vaccination visit?",
	},
	{
		keywords: []string{"food", "diet", "eat", "nutrition", "feed"},
		text:     "A complete, balanced diet suited to your pet's age and size is best. Avoid chocolate, grapes, onions and xylitol. Would you like tips for a specific pet?",
	},
	{
		keywords: []string{"groom", "bath", "nail"},
		text:     "Regular brushing and nail trims keep most pets comfortable. We also offer grooming appointments if you'd like help.",
	},
}

const fallbackReply = "I'm here to help with pet care questions, vaccination schedules, diet and nutrition advice, and booking vet appointments. What would you like to know?"

// reply picks a canned answer. bookingFlow is nil when the message asks to
// book, leaving the booking dialogue to the client.
func reply(message string) (text string, bookingFlow *bool) {
	lower := strings.ToLower(message)
	if wantsBooking(lower) {
		return "I can help you book an appointment!", nil
	}
	no := false
	for _, r := range cannedReplies {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.text, &no
			}
		}
	}
	return fallbackReply, &no
}

func wantsBooking(lower string) bool {
	for _, kw := range []string{"book", "appointment", "schedule"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func greeting(uc *session.Context) string {
	if uc == nil || strings.TrimSpace(uc.UserName) == "" {
		return "Hello! Welcome to the clinic's virtual assistant. How can I help you and your pet today?"
	}
	msg := "Welcome back, " + strings.TrimSpace(uc.UserName) + "!"
	if pet := strings.TrimSpace(uc.PetName); pet != "" {
		msg += " How is " + pet + " doing?"
	}
	return msg + " How can I help today?"
}
