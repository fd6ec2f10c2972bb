package service

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"

	"roulette-bot/internal/model"
)

var answerPattern = regexp.MustCompile(`^\d+$`)

// Captcha generates single-digit addition and subtraction problems.
type Captcha struct {
	intN func(n int) int
}

// NewCaptcha creates a generator. intN returns a value in [0, n); nil selects math/rand/v2.
func NewCaptcha(intN func(n int) int) *Captcha {
	if intN == nil {
		intN = rand.IntN
	}
	return &Captcha{intN: intN}
}

// Generate returns a new challenge whose answer is always positive.
func (c *Captcha) Generate() model.Challenge {
	op := "+"
	if c.intN(2) == 1 {
		op = "-"
	}

	a, b := c.digit(), c.digit()
	if op == "-" {
		for a <= b {
			a, b = c.digit(), c.digit()
		}
		return model.Challenge{Question: fmt.Sprintf("%d-%d=?", a, b), Answer: a - b}
	}
	return model.Challenge{Question: fmt.Sprintf("%d+%d=?", a, b), Answer: a + b}
}

func (c *Captcha) digit() int {
	return c.intN(9) + 1
}

// Check reports whether text is a well-formed answer equal to the expected one.
func (c *Captcha) Check(ch model.Challenge, text string) bool {
	answer, err := ParseAnswer(text)
	return err == nil && answer == ch.Answer
}

// ParseAnswer accepts only a plain run of ASCII digits.
func ParseAnswer(text string) (int, error) {
	if !answerPattern.MatchString(text) {
		return 0, fmt.Errorf("%w: answer %q is not a number", model.ErrValidation, text)
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: answer %q: %v", model.ErrValidation, text, err)
	}
	return n, nil
}
