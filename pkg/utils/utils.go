package utils

import (
	"fmt"
	"strings"
	"sync"
)

var (
	systemPromptOverride string
	overrideLock         sync.Mutex
)

// SetSystemPromptOverride sets an override for the system prompt.
func SetSystemPromptOverride(prompt string) {
	overrideLock.Lock()
	defer overrideLock.Unlock()
	systemPromptOverride = prompt
}

// ClearSystemPromptOverride clears the override.
func ClearSystemPromptOverride() {
	overrideLock.Lock()
	defer overrideLock.Unlock()
	systemPromptOverride = ""
}

// GetSystemPrompt returns the system prompt to be used by the LLM.
// If an override is set, it is returned; otherwise, the time resolution prompt is returned.
func GetSystemPrompt() string {
	overrideLock.Lock()
	defer overrideLock.Unlock()
	if systemPromptOverride != "" {
		return systemPromptOverride
	}
	return getTimeResolutionPrompt()
}

// getTimeResolutionPrompt returns the prompt that turns a natural language phrase into a date-time.
func getTimeResolutionPrompt() string {
	return `
System Prompt: Date and Time Resolution

You convert a natural language description of a moment in time into one exact local date-time.

Rules:
1. Reply with exactly one line in the format YYYY-MM-DD HH:mm:ss and nothing else.
2. Resolve relative phrases ("tomorrow", "next friday", "in 3 hours") against the reference time you are given.
3. Interpret the result in the timezone you are given.
4. If no time of day is stated, use 00:00:00.
5. If the phrase cannot be resolved to a moment, reply with the single word UNKNOWN.
6. Never use markdown, quotes or explanations.
`
}

// TimeResolutionRequest renders the user message for a resolution request.
func TimeResolutionRequest(text, reference, timezone string) string {
	return fmt.Sprintf("Reference time: %s\nTimezone: %s\nPhrase: %s", reference, timezone, strings.TrimSpace(text))
}

// CleanModelReply strips the decoration models tend to add around a one-line answer.
func CleanModelReply(reply string) string {
	reply = strings.Trim(reply, " \t\r\n`\"'")
	if i := strings.IndexByte(reply, '\n'); i >= 0 {
		reply = reply[:i]
	}
	return strings.Trim(reply, " \t\r`\"'")
}
