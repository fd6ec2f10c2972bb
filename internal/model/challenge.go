package model

// Challenge is an arithmetic captcha question and its answer.
type Challenge struct {
	Question string
	Answer   int
}
