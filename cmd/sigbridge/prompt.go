package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

var errNotInteractive = errors.New("stdin is not a terminal, pass the value as an argument or flag")

// prompt and confirm ask the operator on the terminal. Tests replace them.
var (
	prompt  = huhPrompt
	confirm = huhConfirm
)

func interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func huhPrompt(title, description string, validate func(string) error) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%s: %w", title, errNotInteractive)
	}
	var value string
	err := huh.NewInput().
		Title(title).
		Description(description).
		Validate(func(s string) error { return validate(strings.TrimSpace(s)) }).
		Value(&value).
		Run()
	return strings.TrimSpace(value), err
}

func huhConfirm(title, yes, no string) (bool, error) {
	if !interactive() {
		return false, fmt.Errorf("%s: %w", title, errNotInteractive)
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative(yes).
		Negative(no).
		Value(&ok).
		Run()
	return ok, err
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("a value is required")
	}
	return nil
}

// valueOr returns v when set and asks otherwise.
func valueOr(v, title, description string, validate func(string) error) (string, error) {
	if v = strings.TrimSpace(v); v != "" {
		return v, validate(v)
	}
	return prompt(title, description, validate)
}
