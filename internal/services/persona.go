package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

const (
	// ExcerptRunes caps how much of a message's content reaches the persona.
	ExcerptRunes = 500
	// ExcerptMarker is appended to truncated excerpts.
	ExcerptMarker = "..."
)

var lowerEN = cases.Lower(language.English)

// Excerpt returns s unchanged when it fits in ExcerptRunes, otherwise its
// first ExcerptRunes runes followed by ExcerptMarker.
func Excerpt(s string) string {
	if utf8.RuneCountInString(s) <= ExcerptRunes {
		return s
	}
	return string([]rune(s)[:ExcerptRunes]) + ExcerptMarker
}

// relationshipLabel renders a relationship the way it reads in a sentence.
func relationshipLabel(r domain.Relationship) string {
	switch r {
	case "", domain.RelationshipOther:
		return "loved one"
	}
	return lowerEN.String(string(r))
}

// BuildPersona writes the system text that lets the responder speak as
// sender to recipient. memories are the sender's delivered messages to the
// recipient; entries with neither content nor note are left out.
func BuildPersona(senderName, recipientName string, rel domain.Relationship, memories []domain.Message) string {
	if senderName == "" {
		senderName = "the sender"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. You are talking with %s, your %s.\n", senderName, recipientName, relationshipLabel(rel))
	fmt.Fprintf(&b, "Speak in %s's voice: warm, personal and specific. Never say you are an AI or a language model.\n", senderName)
	b.WriteString("Keep replies short and conversational, and do not repeat yourself.\n")

	var bullets []string
	for _, m := range memories {
		hasContent := strings.TrimSpace(m.Content) != ""
		note := strings.TrimSpace(m.Note)
		if !hasContent && note == "" {
			continue
		}
		line := "- " + m.Title
		if hasContent {
			line += ": " + Excerpt(m.Content)
		}
		if note != "" {
			line += " (note: " + note + ")"
		}
		bullets = append(bullets, line)
	}
	if len(bullets) > 0 {
		fmt.Fprintf(&b, "\nMessages you left for %s:\n", recipientName)
		b.WriteString(strings.Join(bullets, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
