package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ErrPromptAborted is returned when the user interrupts a prompt.
var ErrPromptAborted = errors.New("prompt aborted")

// ReadSecret prompts for a value without echoing it. Surrounding
// whitespace is trimmed; an empty answer is an error.
func ReadSecret(prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", fmt.Errorf("failed to start prompt: %w", err)
	}
	defer rl.Close()

	raw, err := rl.ReadPassword(prompt)
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", ErrPromptAborted
		}
		return "", err
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", errors.New("no value entered")
	}
	return value, nil
}
