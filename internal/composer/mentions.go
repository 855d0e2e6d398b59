package composer

import "strings"

// MentionedUser is a user the composer text currently @-mentions. Resolution
// happens out of band (the typing-suggestion flow feeds resolved users into
// the session); the composer only re-scans text against what was resolved.
type MentionedUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// scanMentions extracts @token occurrences from text and matches each token
// against the resolved-user set, keyed by lowercased name. The result is
// keyed by user id so a user mentioned twice appears once.
func scanMentions(text string, resolved map[string]MentionedUser) map[string]MentionedUser {
	mentions := make(map[string]MentionedUser)
	if text == "" || len(resolved) == 0 {
		return mentions
	}
	for _, token := range mentionTokens(text) {
		if user, ok := resolved[strings.ToLower(token)]; ok {
			mentions[user.ID] = user
		}
	}
	return mentions
}

// mentionTokens returns the tokens following each '@' in the text, split on
// whitespace with trailing punctuation stripped. "@" with nothing after it
// yields no token.
func mentionTokens(text string) []string {
	var tokens []string
	fields := strings.Fields(text)
	for _, f := range fields {
		at := strings.IndexByte(f, '@')
		if at < 0 || at+1 >= len(f) {
			continue
		}
		token := strings.TrimRight(f[at+1:], ".,!?;:")
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
