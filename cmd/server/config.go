package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	TokenSigningKey   string        `env:"TOKEN_SIGNING_KEY,required=true"`
	// CensoredWords is a comma-separated word list; empty disables moderation.
	CensoredWords     string `env:"CENSORED_WORDS"`
	CensorReplacement string `env:"CENSOR_CHARACTER_REPLACEMENT,default=*"`
}

func (c Config) censoredWordList() []string {
	words := strings.Split(c.CensoredWords, ",")
	return lo.FilterMap(words, func(w string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(w)
		return trimmed, trimmed != ""
	})
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSOR_CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
